// Package metrics exposes Prometheus instrumentation for the message
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics exposes counters/gauges/histograms for the dispatch queue
// and the conversation engine. All observe methods are nil-receiver safe so
// callers can run unmetered.
type PipelineMetrics struct {
	processedTotal  *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	itemDuration    *prometheus.HistogramVec
	oracleLatency   *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adviser",
			Subsystem: "pipeline",
			Name:      "messages_processed_total",
			Help:      "Total queue items drained, by outcome",
		}, []string{"status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "adviser",
			Subsystem: "pipeline",
			Name:      "queue_depth",
			Help:      "Messages currently waiting in the dispatch queue",
		}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adviser",
			Subsystem: "pipeline",
			Name:      "item_duration_seconds",
			Help:      "Wall time spent processing one drained queue item",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adviser",
			Subsystem: "oracle",
			Name:      "latency_seconds",
			Help:      "Latency of oracle calls, by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adviser",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route and status class",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.processedTotal, m.queueDepth, m.itemDuration, m.oracleLatency, m.requestDuration)
	return m
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetQueueDepth records the current dispatch queue depth.
func (m *PipelineMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// ObserveItem records one drained queue item.
func (m *PipelineMetrics) ObserveItem(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.processedTotal.WithLabelValues(status).Inc()
	m.itemDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveOracle records one oracle call.
func (m *PipelineMetrics) ObserveOracle(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.oracleLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *PipelineMetrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Processor handles one inbound message end to end.
type Processor interface {
	Process(ctx context.Context, in Inbound) (*Result, error)
}

// QueueMetrics receives dispatcher observations. A nil implementation is
// allowed.
type QueueMetrics interface {
	SetQueueDepth(n int)
	ObserveItem(status string, d time.Duration)
}

// Dispatcher bounds outbound reasoning work to a fixed budget: at most
// maxPerWindow items per window, drained one at a time in strict arrival
// order by a single ticker-driven worker. Enqueue never blocks and may run
// concurrently with draining; the queue itself is the only shared state and
// is guarded by a mutex. A failure or panic inside one item is contained at
// the item boundary and never stops the drain loop.
type Dispatcher struct {
	proc        Processor
	interval    time.Duration
	itemTimeout time.Duration
	metrics     QueueMetrics
	logger      *logging.Logger

	mu    sync.Mutex
	queue []Inbound

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a stopped dispatcher draining at most maxPerWindow
// items per window. Call Start to begin draining.
func NewDispatcher(proc Processor, maxPerWindow int, window, itemTimeout time.Duration, m QueueMetrics, logger *logging.Logger) *Dispatcher {
	if maxPerWindow <= 0 {
		maxPerWindow = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		proc:        proc,
		interval:    window / time.Duration(maxPerWindow),
		itemTimeout: itemTimeout,
		metrics:     m,
		logger:      logger,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Enqueue appends one message and returns immediately with the new depth.
func (d *Dispatcher) Enqueue(in Inbound) int {
	d.mu.Lock()
	d.queue = append(d.queue, in)
	depth := len(d.queue)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetQueueDepth(depth)
	}
	return depth
}

// Depth returns the number of waiting items.
func (d *Dispatcher) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Start launches the drain loop.
func (d *Dispatcher) Start() {
	go d.loop()
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.drainOne()
		}
	}
}

// drainOne pops and processes at most one item.
func (d *Dispatcher) drainOne() {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	in := d.queue[0]
	d.queue = d.queue[1:]
	depth := len(d.queue)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetQueueDepth(depth)
	}

	start := time.Now()
	status := d.run(in)
	if d.metrics != nil {
		d.metrics.ObserveItem(status, time.Since(start))
	}
}

// run executes one item with panic containment and a per-item deadline.
func (d *Dispatcher) run(in Inbound) (status string) {
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			d.logger.Error("panic while processing message",
				"tenant_id", in.TenantID.String(),
				"source_key", in.SourceKey,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	ctx := context.Background()
	if d.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.itemTimeout)
		defer cancel()
	}

	result, err := d.proc.Process(ctx, in)
	switch {
	case err != nil:
		d.logger.Error("message processing failed",
			"tenant_id", in.TenantID.String(),
			"source_key", in.SourceKey,
			"error", err,
		)
		return "failed"
	case result.Duplicate:
		return "duplicate"
	default:
		return "processed"
	}
}

// Shutdown stops the drain loop, waiting for any in-flight item to finish.
// Items still queued at that point are reported and dropped.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stop) })

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if remaining := d.Depth(); remaining > 0 {
		d.logger.Warn("dispatcher stopped with pending messages", "depth", remaining)
	}
	return nil
}

package conversation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JaRodriguez97/back-adviser/internal/clients"
	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Queue accepts messages for deferred processing.
type Queue interface {
	Enqueue(in Inbound) int
}

// Handler exposes the message intake endpoint. Acceptance is decoupled from
// processing: the handler fingerprints, answers duplicates immediately, and
// enqueues everything else for the dispatcher.
type Handler struct {
	queue   Queue
	deduper Deduper
	logger  *logging.Logger
}

// NewHandler creates the intake HTTP handler.
func NewHandler(queue Queue, deduper Deduper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{queue: queue, deduper: deduper, logger: logger}
}

// Routes returns a chi router with the intake routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Accept)
	return r
}

// AcceptRequest is the inbound message payload.
type AcceptRequest struct {
	Phone       string    `json:"phone"`
	DisplayName string    `json:"display_name,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	Text        string    `json:"text"`
	SourceKey   string    `json:"source_key,omitempty"`
}

// AcceptResponse reports the intake outcome.
type AcceptResponse struct {
	Accepted   bool `json:"accepted"`
	Duplicate  bool `json:"duplicate"`
	QueueDepth int  `json:"queue_depth,omitempty"`
}

// Accept handles POST /v1/messages. Duplicates answer 200 with no side
// effects; fresh messages answer 202 once enqueued.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "missing tenant"}`, http.StatusUnauthorized)
		return
	}

	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Phone == "" || req.Text == "" {
		http.Error(w, `{"error": "phone and text are required"}`, http.StatusBadRequest)
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	phone := clients.NormalizePhone(req.Phone)
	fingerprint := messages.Fingerprint(phone, req.Timestamp, req.Text)

	seen, err := h.deduper.Seen(r.Context(), tenantID, fingerprint)
	if err != nil {
		h.logger.Error("dedup check failed", "tenant_id", tenantID.String(), "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if seen {
		writeJSON(w, http.StatusOK, AcceptResponse{Duplicate: true})
		return
	}

	depth := h.queue.Enqueue(Inbound{
		TenantID:    tenantID,
		Phone:       phone,
		DisplayName: req.DisplayName,
		Timestamp:   req.Timestamp,
		Text:        req.Text,
		SourceKey:   req.SourceKey,
	})
	h.logger.Info("message accepted",
		"tenant_id", tenantID.String(),
		"source_key", req.SourceKey,
		"queue_depth", depth,
	)
	writeJSON(w, http.StatusAccepted, AcceptResponse{Accepted: true, QueueDepth: depth})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package schedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Handler provides HTTP endpoints for appointment administration.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates an appointment admin HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi router with appointment admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{tenantID}", h.ListByDate)
	r.Patch("/{tenantID}/{appointmentID}", h.UpdateStatus)
	return r
}

// ListByDate handles GET /admin/appointments/{tenantID}?date=YYYY-MM-DD.
// The date defaults to today.
func (h *Handler) ListByDate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		http.Error(w, `{"error": "invalid tenant id"}`, http.StatusBadRequest)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	appts, err := h.store.ListByDate(r.Context(), tenantID, date)
	if err != nil {
		h.logger.Error("failed to list appointments", "tenant_id", tenantID.String(), "date", date, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(appts); err != nil {
		h.logger.Error("failed to encode appointments", "error", err)
	}
}

// UpdateStatusRequest is the request body for an appointment status change.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus handles PATCH /admin/appointments/{tenantID}/{appointmentID}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		http.Error(w, `{"error": "invalid tenant id"}`, http.StatusBadRequest)
		return
	}
	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		http.Error(w, `{"error": "unknown status"}`, http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateStatus(r.Context(), tenantID, appointmentID, req.Status); err != nil {
		h.logger.Error("failed to update appointment status",
			"tenant_id", tenantID.String(),
			"appointment_id", appointmentID.String(),
			"error", err,
		)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

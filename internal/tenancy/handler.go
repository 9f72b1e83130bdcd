package tenancy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Handler provides HTTP endpoints for tenant administration.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a tenant admin HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi router with tenant admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{tenantID}", h.Get)
	r.Delete("/{tenantID}", h.Deactivate)
	r.Post("/{tenantID}/services", h.CreateService)
	r.Get("/{tenantID}/services", h.ListServices)
	return r
}

// Create handles POST /admin/tenants.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.Warn("tenant validation failed", "error", err)
		http.Error(w, `{"error": "`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	tenant, err := h.store.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create tenant", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(tenant); err != nil {
		h.logger.Error("failed to encode tenant", "error", err)
	}
}

// List handles GET /admin/tenants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list tenants", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tenants); err != nil {
		h.logger.Error("failed to encode tenants", "error", err)
	}
}

// Get handles GET /admin/tenants/{tenantID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return
	}

	tenant, err := h.store.GetByID(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			http.Error(w, `{"error": "tenant not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get tenant", "tenant_id", tenantID.String(), "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tenant); err != nil {
		h.logger.Error("failed to encode tenant", "error", err)
	}
}

// Deactivate handles DELETE /admin/tenants/{tenantID}.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return
	}

	if err := h.store.Deactivate(r.Context(), tenantID); err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			http.Error(w, `{"error": "tenant not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to deactivate tenant", "tenant_id", tenantID.String(), "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateServiceRequest is the request body for adding a catalog service.
type CreateServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// CreateService handles POST /admin/tenants/{tenantID}/services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.DurationMinutes <= 0 {
		http.Error(w, `{"error": "name and a positive duration are required"}`, http.StatusBadRequest)
		return
	}

	svc, err := h.store.CreateService(r.Context(), tenantID, req.Name, req.DurationMinutes)
	if err != nil {
		h.logger.Error("failed to create service", "tenant_id", tenantID.String(), "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(svc); err != nil {
		h.logger.Error("failed to encode service", "error", err)
	}
}

// ListServices handles GET /admin/tenants/{tenantID}/services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return
	}

	services, err := h.store.ListServices(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list services", "tenant_id", tenantID.String(), "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(services); err != nil {
		h.logger.Error("failed to encode services", "error", err)
	}
}

func parseTenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		http.Error(w, `{"error": "invalid tenant id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return tenantID, true
}

// Package router assembles the HTTP surface: the authenticated message
// intake, the admin API, and the operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JaRodriguez97/back-adviser/internal/conversation"
	httpmiddleware "github.com/JaRodriguez97/back-adviser/internal/http/middleware"
	"github.com/JaRodriguez97/back-adviser/internal/schedule"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      *conversation.Handler
	TenantHandler      *tenancy.Handler
	ScheduleHandler    *schedule.Handler
	APIKeyResolver     httpmiddleware.APIKeyResolver
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	RequestMetrics     httpmiddleware.RequestMetrics
	CORSAllowedOrigins []string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.RequestMetrics))
	}

	// Operational endpoints.
	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Message intake, authenticated per tenant by API key.
	r.Group(func(intake chi.Router) {
		intake.Use(httpmiddleware.TenantAPIKey(cfg.APIKeyResolver, cfg.Logger))
		intake.Mount("/v1/messages", cfg.IntakeHandler.Routes())
	})

	// Admin surface behind JWT auth.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Mount("/tenants", cfg.TenantHandler.Routes())
		admin.Mount("/appointments", cfg.ScheduleHandler.Routes())
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status": "ok"}`))
}

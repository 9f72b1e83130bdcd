package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// APIKeyResolver maps an inbound API key to a tenant id.
type APIKeyResolver interface {
	LookupAPIKey(ctx context.Context, key string) (uuid.UUID, error)
}

// TenantAPIKey authenticates message-intake requests with the X-API-Key
// header and stashes the resolved tenant id on the request context.
func TenantAPIKey(resolver APIKeyResolver, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				http.Error(w, `{"error": "missing api key"}`, http.StatusUnauthorized)
				return
			}
			tenantID, err := resolver.LookupAPIKey(r.Context(), key)
			if err != nil {
				if errors.Is(err, tenancy.ErrAPIKeyNotFound) {
					http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
					return
				}
				logger.Error("api key lookup failed", "error", err)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithTenantID(r.Context(), tenantID)))
		})
	}
}

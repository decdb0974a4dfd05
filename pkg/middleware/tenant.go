package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/configuration"
	"github.com/iota-uz/hookrelay/pkg/httpapi"
)

// RequireTenantID resolves the tenant scope for API requests from the
// configured tenant header and rejects requests without a valid one.
func RequireTenantID() mux.MiddlewareFunc {
	conf := configuration.Use()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(conf.TenantIDHeader))
			if raw == "" {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "missing "+conf.TenantIDHeader+" header", nil)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				logger := composables.UseLogger(r.Context())
				logger.WithField("tenant-id", raw).Warn("invalid tenant id header")
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_INVALID", "invalid "+conf.TenantIDHeader+" header", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(composables.WithTenantID(r.Context(), id)))
		})
	}
}

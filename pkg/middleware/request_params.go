package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/configuration"
)

// RequestParams collects per-request metadata into the context for handlers
// and services further down the chain.
func RequestParams() mux.MiddlewareFunc {
	conf := configuration.Use()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := &composables.Params{
				IP:        getRealIP(r, conf),
				UserAgent: r.UserAgent(),
				Request:   r,
				Writer:    w,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}

package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/hookrelay/pkg/application"
	"github.com/iota-uz/hookrelay/pkg/configuration"
	"github.com/iota-uz/hookrelay/pkg/constants"
	"github.com/iota-uz/hookrelay/pkg/httpapi"
	"github.com/iota-uz/hookrelay/pkg/middleware"
	"github.com/iota-uz/hookrelay/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	// Core middleware stack with tracing capabilities
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()), // This now creates the root span for each request

		middleware.TracedMiddleware("database"),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.Origin),

		middleware.TracedMiddleware("opsGuard"),
		middleware.OpsGuard(conf),
	}

	// Add rate limiting middleware if enabled
	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error

		// Choose storage backend
		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		// Add global rate limiting middleware
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	middlewares = append(middlewares,
		// The tunnel is exempt: relayers legitimately re-post identical
		// diagnostic payloads.
		middleware.TracedMiddleware("replayProtection"),
		middleware.ReplayProtection(middleware.ReplayProtectionOptions{
			Paths:      []string{"/webhooks/events"},
			KeyHeaders: []string{conf.TenantIDHeader},
		}),
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(),
	)

	app.RegisterMiddleware(middlewares...)

	serverInstance := server.NewHTTPServer(
		app,
		notFoundHandler(),
		methodNotAllowedHandler(),
	)
	return serverInstance, nil
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no such route", nil)
	})
}

func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed for this route", nil)
	})
}

package middleware

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type RateLimitConfig struct {
	// RequestsPerPeriod caps how many requests a client may send per Period.
	RequestsPerPeriod int
	// Period defaults to one second.
	Period time.Duration
	// Store defaults to an in-memory store.
	Store limiter.Store
	// TrustForwardHeader derives client identity from X-Forwarded-For.
	TrustForwardHeader bool
}

func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	period := cfg.Period
	if period <= 0 {
		period = time.Second
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	instance := limiter.New(
		store,
		limiter.Rate{Period: period, Limit: int64(cfg.RequestsPerPeriod)},
		limiter.WithTrustForwardHeader(cfg.TrustForwardHeader),
	)
	return mhttp.NewMiddleware(instance).Handler
}

func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

package middleware

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedisStore builds a limiter store backed by the Redis at redisURL so
// rate limit counters survive restarts and are shared across replicas.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}
	client := redis.NewClient(opts)
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   "hookrelay:ratelimit",
		MaxRetry: 3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create redis rate limit store")
	}
	return store, nil
}

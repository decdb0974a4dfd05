package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/pkg/composables"
)

// Cleaner prunes terminal events past their retention window. Completed
// events age out after Retention; permanently failed events are kept until
// FailedRetention, or forever when it is zero, so operators can inspect and
// requeue them.
type Cleaner struct {
	pool   *pgxpool.Pool
	events event.Repository
	opts   CleanerOptions
}

func NewCleaner(pool *pgxpool.Pool, events event.Repository, opts CleanerOptions) (*Cleaner, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if events == nil {
		return nil, invalidConfig("event repository is required")
	}

	opts.setDefaults()

	c := &Cleaner{pool: pool, events: events, opts: opts}
	if c.opts.Logger == nil {
		c.opts.Logger = logrusNop()
	}
	return c, nil
}

func (c *Cleaner) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}
	if !c.opts.Enabled {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx = composables.WithPool(ctx, c.pool)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := c.cleanOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).Warn("webhooks: retention sweep failed")
		}
	}
}

func (c *Cleaner) cleanOnce(ctx context.Context) error {
	now := time.Now()
	cutoff := now.Add(-c.opts.Retention)

	var failedCutoff time.Time
	if c.opts.FailedRetention > 0 {
		failedCutoff = now.Add(-c.opts.FailedRetention)
	}

	deleted, err := c.events.DeleteTerminalBefore(ctx, cutoff, failedCutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		c.opts.Logger.WithField("deleted", deleted).Info("webhooks: pruned terminal events")
	}
	return nil
}

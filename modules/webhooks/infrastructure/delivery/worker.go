package delivery

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
)

// Worker drains due events: claim, dispatch, record the attempt, advance the
// event. Claims are compare-and-set guarded so concurrent workers never
// attempt the same event twice.
type Worker struct {
	pool       *pgxpool.Pool
	events     event.Repository
	attempts   attempt.Repository
	dispatcher Dispatcher
	publisher  eventbus.EventBus
	opts       WorkerOptions

	lockKey int64
	wake    chan struct{}

	m *metrics
}

func NewWorker(
	pool *pgxpool.Pool,
	events event.Repository,
	attempts attempt.Repository,
	dispatcher Dispatcher,
	publisher eventbus.EventBus,
	opts WorkerOptions,
) (*Worker, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if events == nil {
		return nil, invalidConfig("event repository is required")
	}
	if attempts == nil {
		return nil, invalidConfig("attempt repository is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}

	opts.setDefaults()

	w := &Worker{
		pool:       pool,
		events:     events,
		attempts:   attempts,
		dispatcher: dispatcher,
		publisher:  publisher,
		opts:       opts,
		lockKey:    advisoryLockKey("webhooks:delivery"),
		wake:       make(chan struct{}, 1),
	}
	if w.opts.Logger == nil {
		w.opts.Logger = logrusNop()
	}
	w.m = getMetrics()
	return w, nil
}

// Wake nudges the worker to poll ahead of its next tick. Safe to call from
// any goroutine; wakes are coalesced.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}
	ctx = composables.WithPool(ctx, w.pool)

	if w.opts.SingleActive {
		return w.runSingleActive(ctx)
	}

	w.m.workerLeader.Set(1)
	return w.runLoop(ctx)
}

func (w *Worker) runSingleActive(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := w.pool.Acquire(ctx)
		if err != nil {
			w.opts.Logger.WithError(err).Warn("webhooks: failed to acquire connection for single-active worker")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.opts.PollInterval):
				continue
			}
		}

		leader, err := w.tryAcquireLeader(ctx, conn)
		if err != nil {
			conn.Release()
			w.opts.Logger.WithError(err).Warn("webhooks: failed to attempt advisory lock")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.opts.PollInterval):
				continue
			}
		}

		if !leader {
			w.m.workerLeader.Set(0)
			conn.Release()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.opts.PollInterval):
				continue
			}
		}

		w.m.workerLeader.Set(1)
		w.opts.Logger.Info("webhooks: delivery worker became leader")

		err = w.runLoop(ctx)
		_ = w.releaseLeader(context.Background(), conn)
		conn.Release()
		return err
	}
}

func (w *Worker) runLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.wake:
		}

		if time.Now().After(nextDepthAt) {
			if err := w.observeQueueDepth(ctx); err != nil {
				w.opts.Logger.WithError(err).Debug("webhooks: observe queue depth failed")
			}
			nextDepthAt = time.Now().Add(w.opts.ObserveQueueDepthEvery)
		}

		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.opts.Logger.WithError(err).Warn("webhooks: process tick failed")
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) error {
	now := time.Now()

	due, err := w.events.ListDue(ctx, now, w.opts.BatchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	for _, candidate := range due {
		claimed, err := w.events.Claim(ctx, candidate.ID, candidate.TryCount, time.Now().Add(w.opts.LeaseTTL))
		if errors.Is(err, event.ErrClaimConflict) {
			w.m.conflictTotal.Inc()
			w.opts.Logger.WithFields(logFields(candidate)).Debug("webhooks: claim lost to another worker")
			continue
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.opts.Logger.WithError(err).WithFields(logFields(candidate)).Warn("webhooks: claim failed")
			continue
		}

		w.deliver(ctx, claimed)
	}

	return nil
}

func (w *Worker) deliver(ctx context.Context, ev *event.Event) {
	dispatchCtx := ctx
	if w.opts.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, w.opts.DispatchTimeout)
		defer cancel()
	}

	start := time.Now()
	outcome := w.dispatcher.Dispatch(dispatchCtx, ev)
	latency := time.Since(start)

	w.recordDispatch(ev.Kind, outcome.Result, latency)

	outcome.Body = truncateString(outcome.Body, w.opts.ResponseMaxBytes)
	outcome.Reason = truncateString(outcome.Reason, w.opts.ResponseMaxBytes)

	// The attempt row goes in before the event state changes. A crash in
	// between leaves an orphan attempt, which is detectable; advancing the
	// event without a record would not be.
	att := &attempt.Attempt{
		EventID:      ev.ID,
		AttemptIndex: ev.TryCount + 1,
		Outcome:      outcome,
		RequestedAt:  start,
		Duration:     latency,
	}
	if err := w.attempts.Append(ctx, att); err != nil {
		w.opts.Logger.WithError(err).WithFields(logFields(ev)).Warn("webhooks: attempt append failed")
		return
	}

	expected := ev.TryCount
	if err := ev.Advance(outcome.Delivered(), w.opts.MaxAttempts, time.Now(), w.retryDelay); err != nil {
		w.opts.Logger.WithError(err).WithFields(logFields(ev)).Warn("webhooks: advance refused")
		return
	}

	if err := w.events.Update(ctx, ev, expected); err != nil {
		if errors.Is(err, event.ErrClaimConflict) {
			w.m.conflictTotal.Inc()
			w.opts.Logger.WithFields(logFields(ev)).Warn("webhooks: event advanced elsewhere during attempt")
			return
		}
		w.opts.Logger.WithError(err).WithFields(logFields(ev)).Warn("webhooks: event update failed")
		return
	}

	switch ev.Status {
	case event.StatusCompleted:
		w.publish(&event.CompletedEvent{Result: *ev})
	case event.StatusErrored:
		w.publish(&event.ErroredEvent{Result: *ev})
	case event.StatusFailed:
		w.m.failedTotal.WithLabelValues(string(ev.Kind)).Inc()
		w.publish(&event.FailedEvent{Result: *ev})
	}
}

func (w *Worker) retryDelay(attempts int) time.Duration {
	return backoff(attempts, w.opts.MaxBackoff) + jitter(w.opts.Rand, w.opts.JitterMax)
}

func (w *Worker) publish(ev any) {
	if w.publisher == nil {
		return
	}
	w.publisher.Publish(ev)
}

func (w *Worker) observeQueueDepth(ctx context.Context) error {
	due, scheduled, err := w.events.QueueDepth(ctx, time.Now())
	if err != nil {
		return err
	}
	w.m.due.Set(float64(due))
	w.m.scheduled.Set(float64(scheduled))
	return nil
}

func (w *Worker) recordDispatch(kind event.Kind, result attempt.Result, latency time.Duration) {
	w.m.dispatchTotal.WithLabelValues(string(kind), string(result)).Inc()
	w.m.dispatchLatency.WithLabelValues(string(kind), string(result)).Observe(latency.Seconds())
}

func (w *Worker) tryAcquireLeader(ctx context.Context, conn *pgxpool.Conn) (bool, error) {
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, w.lockKey).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (w *Worker) releaseLeader(ctx context.Context, conn *pgxpool.Conn) error {
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1::bigint)`, w.lockKey).Scan(&ok); err != nil {
		return err
	}
	return nil
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

func logFields(e *event.Event) logrus.Fields {
	return logrus.Fields{
		"event_id":  e.ID.String(),
		"tenant_id": e.TenantID.String(),
		"kind":      string(e.Kind),
		"status":    string(e.Status),
		"try_count": e.TryCount,
	}
}

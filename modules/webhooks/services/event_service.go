package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
)

// summaryLookback is how far back RecentFailures looks when reporting
// delivery health.
const summaryLookback = time.Hour

type EventService struct {
	repo      event.Repository
	attempts  attempt.Repository
	publisher eventbus.EventBus
}

func NewEventService(
	repo event.Repository,
	attempts attempt.Repository,
	publisher eventbus.EventBus,
) *EventService {
	return &EventService{
		repo:      repo,
		attempts:  attempts,
		publisher: publisher,
	}
}

// Enqueue stores a new queued event due immediately and announces it on the
// bus so the delivery worker polls ahead of its next tick.
func (s *EventService) Enqueue(ctx context.Context, data *event.CreateDTO) (*event.Event, error) {
	if data == nil {
		return nil, errors.New("missing dto")
	}
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*event.Event, error) {
		entity := data.ToEntity(uuid.Nil)
		if err := s.repo.Create(txCtx, entity); err != nil {
			return nil, err
		}
		s.publisher.Publish(&event.CreatedEvent{Result: *entity})
		return entity, nil
	})
}

func (s *EventService) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, []*attempt.Attempt, error) {
	var (
		e    *event.Event
		atts []*attempt.Attempt
	)
	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		var err error
		e, err = s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		atts, err = s.attempts.ListByEvent(txCtx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return e, atts, nil
}

func (s *EventService) List(ctx context.Context, params *event.FindParams) ([]*event.Event, int64, error) {
	if params == nil {
		params = &event.FindParams{}
	}
	var (
		events []*event.Event
		total  int64
	)
	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		var err error
		events, err = s.repo.List(txCtx, params)
		if err != nil {
			return err
		}
		total, err = s.repo.Count(txCtx, params)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// RecentFailures counts the tenant's events from the past hour that are
// permanently failed or awaiting a retry.
func (s *EventService) RecentFailures(ctx context.Context) (int64, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.repo.CountFailingSince(txCtx, time.Now().Add(-summaryLookback))
	})
}

// Requeue puts a permanently failed event back in the queue with its try
// counter reset. Anything not in the failed state is rejected with
// event.ErrNotRequeueable.
func (s *EventService) Requeue(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*event.Event, error) {
		e, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		expected := e.TryCount
		if err := e.Requeue(time.Now()); err != nil {
			return nil, err
		}
		if err := s.repo.Update(txCtx, e, expected); err != nil {
			return nil, err
		}
		s.publisher.Publish(&event.RequeuedEvent{Result: *e})
		return e, nil
	})
}

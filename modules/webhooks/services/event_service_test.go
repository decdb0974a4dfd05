package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
)

// stubTx satisfies pgx.Tx for contexts handed to InTenantTx; with RLS
// disabled nothing on it is ever called.
type stubTx struct{ pgx.Tx }

type mockEventRepo struct {
	created        *event.Event
	getResult      *event.Event
	getErr         error
	updated        *event.Event
	updateExpected int
	updateCalled   bool
	failingSince   time.Time
	failingCount   int64
	listParams     *event.FindParams
	listResult     []*event.Event
	countResult    int64
}

func (m *mockEventRepo) Create(ctx context.Context, e *event.Event) error {
	now := time.Now()
	e.ID = uuid.New()
	e.NextAttempt = &now
	e.CreatedAt = now
	if e.TenantID == uuid.Nil {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil {
			return err
		}
		e.TenantID = tenantID
	}
	m.created = e
	return nil
}

func (m *mockEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.getResult
	return &cp, nil
}

func (m *mockEventRepo) List(ctx context.Context, params *event.FindParams) ([]*event.Event, error) {
	m.listParams = params
	return m.listResult, nil
}

func (m *mockEventRepo) Count(ctx context.Context, params *event.FindParams) (int64, error) {
	return m.countResult, nil
}

func (m *mockEventRepo) CountFailingSince(ctx context.Context, since time.Time) (int64, error) {
	m.failingSince = since
	return m.failingCount, nil
}

func (m *mockEventRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*event.Event, error) {
	return nil, nil
}

func (m *mockEventRepo) QueueDepth(ctx context.Context, now time.Time) (int64, int64, error) {
	return 0, 0, nil
}

func (m *mockEventRepo) Claim(ctx context.Context, id uuid.UUID, expectedTryCount int, leaseUntil time.Time) (*event.Event, error) {
	return nil, event.ErrClaimConflict
}

func (m *mockEventRepo) Update(ctx context.Context, e *event.Event, expectedTryCount int) error {
	m.updateCalled = true
	cp := *e
	m.updated = &cp
	m.updateExpected = expectedTryCount
	return nil
}

func (m *mockEventRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time, failedCutoff time.Time) (int64, error) {
	return 0, nil
}

type mockAttemptRepo struct {
	listResult []*attempt.Attempt
}

func (m *mockAttemptRepo) Append(ctx context.Context, a *attempt.Attempt) error { return nil }

func (m *mockAttemptRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*attempt.Attempt, error) {
	return m.listResult, nil
}

func testBus() eventbus.EventBus {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return eventbus.NewEventPublisher(log)
}

func serviceContext(tenantID uuid.UUID) context.Context {
	ctx := composables.WithTx(context.Background(), stubTx{})
	return composables.WithTenantID(ctx, tenantID)
}

func TestEventService_Enqueue(t *testing.T) {
	repo := &mockEventRepo{}
	bus := testBus()

	var created []*event.CreatedEvent
	bus.Subscribe(func(ev *event.CreatedEvent) { created = append(created, ev) })

	svc := NewEventService(repo, &mockAttemptRepo{}, bus)
	tenantID := uuid.New()

	dto := &event.CreateDTO{
		Kind:           "mo_sms",
		Payload:        map[string][]string{"phone": {"+250788123123"}},
		DestinationURL: "http://hooks.example.com/mo",
	}
	got, err := svc.Enqueue(serviceContext(tenantID), dto)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, event.StatusQueued, got.Status)
	require.Equal(t, 0, got.TryCount)
	require.Equal(t, tenantID, got.TenantID)
	require.NotNil(t, got.NextAttempt, "new events are due immediately")

	require.Len(t, created, 1)
	require.Equal(t, got.ID, created[0].Result.ID)
}

func TestEventService_Enqueue_MissingDTO(t *testing.T) {
	svc := NewEventService(&mockEventRepo{}, &mockAttemptRepo{}, testBus())
	_, err := svc.Enqueue(serviceContext(uuid.New()), nil)
	require.Error(t, err)
}

func TestEventService_GetByID(t *testing.T) {
	e := event.New(uuid.New(), event.KindMoCall, nil, "http://hooks.example.com/call")
	e.ID = uuid.New()
	repo := &mockEventRepo{getResult: e}
	attempts := &mockAttemptRepo{listResult: []*attempt.Attempt{
		{EventID: e.ID, AttemptIndex: 1, Outcome: attempt.NetworkError("refused")},
		{EventID: e.ID, AttemptIndex: 2, Outcome: attempt.Success(200, "ok")},
	}}

	svc := NewEventService(repo, attempts, testBus())
	got, atts, err := svc.GetByID(serviceContext(uuid.New()), e.ID)
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)
	require.Len(t, atts, 2)
}

func TestEventService_GetByID_NotFound(t *testing.T) {
	repo := &mockEventRepo{getErr: event.ErrNotFound}
	svc := NewEventService(repo, &mockAttemptRepo{}, testBus())

	_, _, err := svc.GetByID(serviceContext(uuid.New()), uuid.New())
	require.ErrorIs(t, err, event.ErrNotFound)
}

func TestEventService_List_DefaultsParams(t *testing.T) {
	repo := &mockEventRepo{countResult: 7}
	svc := NewEventService(repo, &mockAttemptRepo{}, testBus())

	_, total, err := svc.List(serviceContext(uuid.New()), nil)
	require.NoError(t, err)
	require.EqualValues(t, 7, total)
	require.NotNil(t, repo.listParams)
}

func TestEventService_RecentFailures(t *testing.T) {
	repo := &mockEventRepo{failingCount: 4}
	svc := NewEventService(repo, &mockAttemptRepo{}, testBus())

	n, err := svc.RecentFailures(serviceContext(uuid.New()))
	require.NoError(t, err)
	require.EqualValues(t, 4, n)
	require.WithinDuration(t, time.Now().Add(-time.Hour), repo.failingSince, 5*time.Second)
}

func TestEventService_Requeue(t *testing.T) {
	failed := event.New(uuid.New(), event.KindAlarm, nil, "http://hooks.example.com/alarm")
	failed.ID = uuid.New()
	failed.Status = event.StatusFailed
	failed.TryCount = event.DefaultMaxAttempts

	repo := &mockEventRepo{getResult: failed}
	bus := testBus()
	var requeued []*event.RequeuedEvent
	bus.Subscribe(func(ev *event.RequeuedEvent) { requeued = append(requeued, ev) })

	svc := NewEventService(repo, &mockAttemptRepo{}, bus)
	got, err := svc.Requeue(serviceContext(uuid.New()), failed.ID)
	require.NoError(t, err)
	require.Equal(t, event.StatusQueued, got.Status)
	require.Equal(t, 0, got.TryCount)
	require.NotNil(t, got.NextAttempt)

	require.True(t, repo.updateCalled)
	require.Equal(t, event.DefaultMaxAttempts, repo.updateExpected,
		"requeue must be guarded on the stored try count")
	require.Len(t, requeued, 1)
}

func TestEventService_Requeue_RejectsNonFailed(t *testing.T) {
	for _, status := range []event.Status{event.StatusQueued, event.StatusErrored, event.StatusCompleted} {
		e := event.New(uuid.New(), event.KindAlarm, nil, "http://hooks.example.com/alarm")
		e.ID = uuid.New()
		e.Status = status

		repo := &mockEventRepo{getResult: e}
		svc := NewEventService(repo, &mockAttemptRepo{}, testBus())

		_, err := svc.Requeue(serviceContext(uuid.New()), e.ID)
		require.ErrorIs(t, err, event.ErrNotRequeueable, "status %s", status)
		require.False(t, repo.updateCalled, "status %s", status)
	}
}

func TestEventService_Requeue_PropagatesNotFound(t *testing.T) {
	repo := &mockEventRepo{getErr: event.ErrNotFound}
	svc := NewEventService(repo, &mockAttemptRepo{}, testBus())

	_, err := svc.Requeue(serviceContext(uuid.New()), uuid.New())
	require.ErrorIs(t, err, event.ErrNotFound)
}

package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/viewmodels"
	"github.com/iota-uz/hookrelay/modules/webhooks/services"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/constants"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
)

// ctrlStubTx satisfies pgx.Tx for contexts handed to the service layer. With
// row level security disabled nothing on it is ever called.
type ctrlStubTx struct{ pgx.Tx }

type memoryEventRepo struct {
	events  map[uuid.UUID]*event.Event
	failing int64
}

func newMemoryEventRepo() *memoryEventRepo {
	return &memoryEventRepo{events: map[uuid.UUID]*event.Event{}}
}

func (r *memoryEventRepo) put(e *event.Event) {
	cp := *e
	r.events[e.ID] = &cp
}

func (r *memoryEventRepo) Create(ctx context.Context, e *event.Event) error {
	if e.TenantID == uuid.Nil {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil {
			return err
		}
		e.TenantID = tenantID
	}
	now := time.Now()
	e.ID = uuid.New()
	e.CreatedAt = now
	at := now
	e.NextAttempt = &at
	r.put(e)
	return nil
}

func (r *memoryEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	stored, ok := r.events[id]
	if !ok || stored.TenantID != tenantID {
		return nil, event.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *memoryEventRepo) matching(ctx context.Context, params *event.FindParams) ([]*event.Event, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	var out []*event.Event
	for _, e := range r.events {
		if e.TenantID != tenantID {
			continue
		}
		if params.Kind != "" && e.Kind != params.Kind {
			continue
		}
		if len(params.Status) > 0 && !slices.Contains(params.Status, e.Status) {
			continue
		}
		if params.CreatedAfter != nil && e.CreatedAt.Before(*params.CreatedAfter) {
			continue
		}
		if params.CreatedBefore != nil && e.CreatedAt.After(*params.CreatedBefore) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryEventRepo) List(ctx context.Context, params *event.FindParams) ([]*event.Event, error) {
	matched, err := r.matching(ctx, params)
	if err != nil {
		return nil, err
	}
	if params.Offset > 0 {
		if params.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[params.Offset:]
		}
	}
	if params.Limit > 0 && len(matched) > params.Limit {
		matched = matched[:params.Limit]
	}
	out := make([]*event.Event, 0, len(matched))
	for _, e := range matched {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryEventRepo) Count(ctx context.Context, params *event.FindParams) (int64, error) {
	matched, err := r.matching(ctx, params)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *memoryEventRepo) CountFailingSince(ctx context.Context, since time.Time) (int64, error) {
	return r.failing, nil
}

func (r *memoryEventRepo) Update(ctx context.Context, e *event.Event, expectedTryCount int) error {
	stored, ok := r.events[e.ID]
	if !ok {
		return event.ErrNotFound
	}
	if stored.TryCount != expectedTryCount {
		return event.ErrClaimConflict
	}
	r.put(e)
	return nil
}

func (r *memoryEventRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*event.Event, error) {
	panic("unused")
}

func (r *memoryEventRepo) QueueDepth(ctx context.Context, now time.Time) (int64, int64, error) {
	panic("unused")
}

func (r *memoryEventRepo) Claim(ctx context.Context, id uuid.UUID, expectedTryCount int, leaseUntil time.Time) (*event.Event, error) {
	panic("unused")
}

func (r *memoryEventRepo) DeleteTerminalBefore(ctx context.Context, cutoff, failedCutoff time.Time) (int64, error) {
	panic("unused")
}

type memoryAttemptRepo struct {
	attempts []*attempt.Attempt
}

func (r *memoryAttemptRepo) Append(ctx context.Context, a *attempt.Attempt) error {
	cp := *a
	cp.ID = uint(len(r.attempts) + 1)
	r.attempts = append(r.attempts, &cp)
	return nil
}

func (r *memoryAttemptRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*attempt.Attempt, error) {
	var out []*attempt.Attempt
	for _, a := range r.attempts {
		if a.EventID == eventID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// newEventsRouter wires the controller the way the server does, with the
// request scope middleware replaced by a stub transaction and a quiet logger.
func newEventsRouter(repo event.Repository, attempts attempt.Repository) *mux.Router {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c := &EventsAPIController{
		events:   services.NewEventService(repo, attempts, eventbus.NewEventPublisher(log)),
		basePath: "/webhooks",
	}
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := composables.WithTx(req.Context(), ctrlStubTx{})
			ctx = context.WithValue(ctx, constants.LoggerKey, logrus.NewEntry(log))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	c.Register(r)
	return r
}

func doEvents(router http.Handler, method, target, body string, tenantID uuid.UUID) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenantID != uuid.Nil {
		req.Header.Set("X-Tenant-ID", tenantID.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into), "body: %s", rec.Body.String())
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const createBody = `{"kind":"mo_sms","payload":{"phone":["+250788123123"],"text":["ping"]},"destination_url":"http://example.com/hook"}`

func TestEventsAPIController_Create(t *testing.T) {
	repo := newMemoryEventRepo()
	router := newEventsRouter(repo, &memoryAttemptRepo{})
	tenantID := uuid.New()

	rec := doEvents(router, http.MethodPost, "/webhooks/events", createBody, tenantID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var vm viewmodels.Event
	decodeJSON(t, rec, &vm)
	require.Equal(t, "mo_sms", vm.Kind)
	require.Equal(t, "queued", vm.Status)
	require.Zero(t, vm.TryCount)
	require.Equal(t, tenantID.String(), vm.TenantID)
	require.NotNil(t, vm.NextAttempt)
	require.True(t, strings.HasPrefix(vm.NextDelivery, "Around "), vm.NextDelivery)
	require.Equal(t, []string{"+250788123123"}, vm.Payload["phone"])

	id, err := uuid.Parse(vm.ID)
	require.NoError(t, err)
	require.Contains(t, repo.events, id)
}

func TestEventsAPIController_CreateValidation(t *testing.T) {
	router := newEventsRouter(newMemoryEventRepo(), &memoryAttemptRepo{})
	tenantID := uuid.New()

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantIn     string
	}{
		{
			name:       "malformed json",
			body:       `{"kind":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "WEBHOOKS_INVALID_JSON",
		},
		{
			name:       "missing kind",
			body:       `{"payload":{}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "WEBHOOKS_VALIDATION_FAILED",
		},
		{
			name:       "unknown kind",
			body:       `{"kind":"smoke_signal"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "WEBHOOKS_VALIDATION_FAILED",
			wantIn:     "mo_sms",
		},
		{
			name:       "bad destination url",
			body:       `{"kind":"mo_sms","destination_url":"not a url"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "WEBHOOKS_VALIDATION_FAILED",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := doEvents(router, http.MethodPost, "/webhooks/events", c.body, tenantID)
			require.Equal(t, c.wantStatus, rec.Code, rec.Body.String())

			var e errorBody
			decodeJSON(t, rec, &e)
			require.Equal(t, c.wantCode, e.Code)
			if c.wantIn != "" {
				require.Contains(t, e.Message, c.wantIn)
			}
		})
	}
}

func TestEventsAPIController_TenantHeader(t *testing.T) {
	router := newEventsRouter(newMemoryEventRepo(), &memoryAttemptRepo{})

	rec := doEvents(router, http.MethodPost, "/webhooks/events", createBody, uuid.Nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorBody
	decodeJSON(t, rec, &e)
	require.Equal(t, "TENANT_REQUIRED", e.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeJSON(t, rec, &e)
	require.Equal(t, "TENANT_INVALID", e.Code)
}

func TestEventsAPIController_GetByID(t *testing.T) {
	repo := newMemoryEventRepo()
	attempts := &memoryAttemptRepo{}
	router := newEventsRouter(repo, attempts)
	tenantID := uuid.New()

	rec := doEvents(router, http.MethodPost, "/webhooks/events", createBody, tenantID)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created viewmodels.Event
	decodeJSON(t, rec, &created)
	id := uuid.MustParse(created.ID)

	now := time.Now()
	require.NoError(t, attempts.Append(context.Background(), &attempt.Attempt{
		EventID:      id,
		AttemptIndex: 1,
		Outcome:      attempt.NetworkError("connection refused"),
		RequestedAt:  now.Add(-time.Minute),
		Duration:     120 * time.Millisecond,
	}))
	require.NoError(t, attempts.Append(context.Background(), &attempt.Attempt{
		EventID:      id,
		AttemptIndex: 2,
		Outcome:      attempt.Success(200, "OK"),
		RequestedAt:  now,
		Duration:     80 * time.Millisecond,
	}))

	rec = doEvents(router, http.MethodGet, "/webhooks/events/"+id.String(), "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Event    viewmodels.Event     `json:"event"`
		Attempts []viewmodels.Attempt `json:"attempts"`
	}
	decodeJSON(t, rec, &got)
	require.Equal(t, id.String(), got.Event.ID)
	require.Len(t, got.Attempts, 2)
	require.Equal(t, 1, got.Attempts[0].AttemptIndex)
	require.Equal(t, "network_error", got.Attempts[0].Result)
	require.Nil(t, got.Attempts[0].StatusCode)
	require.Equal(t, "connection refused", got.Attempts[0].Reason)
	require.Equal(t, 2, got.Attempts[1].AttemptIndex)
	require.NotNil(t, got.Attempts[1].StatusCode)
	require.Equal(t, 200, *got.Attempts[1].StatusCode)

	rec = doEvents(router, http.MethodGet, "/webhooks/events/"+id.String(), "", uuid.New())
	require.Equal(t, http.StatusNotFound, rec.Code)
	var e errorBody
	decodeJSON(t, rec, &e)
	require.Equal(t, "WEBHOOKS_NOT_FOUND", e.Code)

	rec = doEvents(router, http.MethodGet, "/webhooks/events/nope", "", tenantID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeJSON(t, rec, &e)
	require.Equal(t, "WEBHOOKS_INVALID_ID", e.Code)
}

func TestEventsAPIController_List(t *testing.T) {
	repo := newMemoryEventRepo()
	router := newEventsRouter(repo, &memoryAttemptRepo{})
	tenantID := uuid.New()

	for _, body := range []string{
		createBody,
		`{"kind":"mo_sms","destination_url":"http://example.com/hook"}`,
		`{"kind":"alarm"}`,
	} {
		rec := doEvents(router, http.MethodPost, "/webhooks/events", body, tenantID)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	var page struct {
		Items []viewmodels.Event `json:"items"`
		Total int64              `json:"total"`
		Page  int                `json:"page"`
		Limit int                `json:"limit"`
	}

	rec := doEvents(router, http.MethodGet, "/webhooks/events?kind=mo_sms", "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	require.Len(t, page.Items, 2)
	require.EqualValues(t, 2, page.Total)

	rec = doEvents(router, http.MethodGet, "/webhooks/events?status=queued,completed", "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	require.Len(t, page.Items, 3)
	require.EqualValues(t, 3, page.Total)

	rec = doEvents(router, http.MethodGet, "/webhooks/events?limit=2", "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	require.Len(t, page.Items, 2)
	require.EqualValues(t, 3, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 2, page.Limit)

	// Another tenant sees nothing.
	rec = doEvents(router, http.MethodGet, "/webhooks/events", "", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	require.Empty(t, page.Items)
	require.Zero(t, page.Total)
}

func TestEventsAPIController_Requeue(t *testing.T) {
	repo := newMemoryEventRepo()
	router := newEventsRouter(repo, &memoryAttemptRepo{})
	tenantID := uuid.New()

	rec := doEvents(router, http.MethodPost, "/webhooks/events", createBody, tenantID)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created viewmodels.Event
	decodeJSON(t, rec, &created)
	id := uuid.MustParse(created.ID)

	stored := repo.events[id]
	stored.Status = event.StatusFailed
	stored.TryCount = event.DefaultMaxAttempts
	stored.NextAttempt = nil

	rec = doEvents(router, http.MethodPost, "/webhooks/events/"+id.String()+"/requeue", "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var vm viewmodels.Event
	decodeJSON(t, rec, &vm)
	require.Equal(t, "queued", vm.Status)
	require.Zero(t, vm.TryCount)
	require.NotNil(t, vm.NextAttempt)
	require.True(t, strings.HasPrefix(vm.NextDelivery, "Around "), vm.NextDelivery)

	// The event is queued again, so a second requeue is rejected.
	rec = doEvents(router, http.MethodPost, "/webhooks/events/"+id.String()+"/requeue", "", tenantID)
	require.Equal(t, http.StatusConflict, rec.Code)
	var e errorBody
	decodeJSON(t, rec, &e)
	require.Equal(t, "WEBHOOKS_NOT_REQUEUEABLE", e.Code)

	rec = doEvents(router, http.MethodPost, "/webhooks/events/"+uuid.NewString()+"/requeue", "", tenantID)
	require.Equal(t, http.StatusNotFound, rec.Code)
	decodeJSON(t, rec, &e)
	require.Equal(t, "WEBHOOKS_NOT_FOUND", e.Code)

	rec = doEvents(router, http.MethodPost, "/webhooks/events/nope/requeue", "", tenantID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeJSON(t, rec, &e)
	require.Equal(t, "WEBHOOKS_INVALID_ID", e.Code)
}

func TestEventsAPIController_Summary(t *testing.T) {
	repo := newMemoryEventRepo()
	router := newEventsRouter(repo, &memoryAttemptRepo{})
	tenantID := uuid.New()

	repo.failing = 4
	rec := doEvents(router, http.MethodGet, "/webhooks/summary", "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary viewmodels.Summary
	decodeJSON(t, rec, &summary)
	require.True(t, summary.FailedWebhooks)
	require.EqualValues(t, 4, summary.WebhookErrorsCount)

	repo.failing = 0
	rec = doEvents(router, http.MethodGet, "/webhooks/summary", "", tenantID)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &summary)
	require.False(t, summary.FailedWebhooks)
	require.Zero(t, summary.WebhookErrorsCount)
}

func TestEventsAPIController_KindsNeedsNoTenant(t *testing.T) {
	router := newEventsRouter(newMemoryEventRepo(), &memoryAttemptRepo{})

	rec := doEvents(router, http.MethodGet, "/webhooks/kinds", "", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Endpoints []viewmodels.Endpoint `json:"endpoints"`
	}
	decodeJSON(t, rec, &got)
	require.Len(t, got.Endpoints, 9)

	names := make([]string, 0, len(got.Endpoints))
	for _, ep := range got.Endpoints {
		names = append(names, ep.Event)
		require.NotEmpty(t, ep.Title)
		require.NotEmpty(t, ep.Fields)
	}
	require.Contains(t, names, "mo_sms")
	require.Contains(t, names, "alarm")
	require.Contains(t, names, "flow")
}

package event

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts is how many delivery tries an event gets before it is
// marked permanently failed.
const DefaultMaxAttempts = 3

type Status string

const (
	StatusQueued    Status = "queued"
	StatusErrored   Status = "errored"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further delivery attempts are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind names what happened upstream. It selects which payload fields are
// relevant but the engine does not validate them.
type Kind string

const (
	KindMoSMS  Kind = "mo_sms"
	KindMtSent Kind = "mt_sent"
	KindMtDlvd Kind = "mt_dlvd"
	KindMoCall Kind = "mo_call"
	KindMoMiss Kind = "mo_miss"
	KindMtCall Kind = "mt_call"
	KindMtMiss Kind = "mt_miss"
	KindAlarm  Kind = "alarm"
	KindFlow   Kind = "flow"
)

func Kinds() []Kind {
	return []Kind{
		KindMoSMS,
		KindMtSent,
		KindMtDlvd,
		KindMoCall,
		KindMoMiss,
		KindMtCall,
		KindMtMiss,
		KindAlarm,
		KindFlow,
	}
}

var (
	ErrNotFound       = errors.New("event not found")
	ErrTerminalState  = errors.New("event is in a terminal state")
	ErrClaimConflict  = errors.New("event was advanced by another worker")
	ErrNotRequeueable = errors.New("event is not permanently failed")
)

type Event struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Kind           Kind
	Payload        url.Values
	DestinationURL string
	Status         Status
	TryCount       int
	NextAttempt    *time.Time
	CreatedAt      time.Time
}

// New returns a queued event. NextAttempt and CreatedAt are assigned by the
// store on insert so all due-ness comparisons use a single clock.
func New(tenantID uuid.UUID, kind Kind, payload url.Values, destinationURL string) *Event {
	return &Event{
		TenantID:       tenantID,
		Kind:           kind,
		Payload:        payload,
		DestinationURL: destinationURL,
		Status:         StatusQueued,
		TryCount:       0,
	}
}

// Due reports whether the event is eligible for a delivery attempt at now.
// Events without a destination URL never become due.
func (e *Event) Due(now time.Time) bool {
	if e.Status != StatusQueued && e.Status != StatusErrored {
		return false
	}
	if e.DestinationURL == "" {
		return false
	}
	return e.NextAttempt != nil && !e.NextAttempt.After(now)
}

// Advance applies the outcome of one finished delivery attempt. Any received
// response counts as delivered, transport failures consume a try and either
// schedule a retry or, once maxAttempts tries are spent, fail the event for
// good. Advancing a terminal event is a caller error.
func (e *Event) Advance(delivered bool, maxAttempts int, now time.Time, backoff func(attempt int) time.Duration) error {
	if e.Status.Terminal() {
		return ErrTerminalState
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	e.TryCount++
	switch {
	case delivered:
		e.Status = StatusCompleted
		e.NextAttempt = nil
	case e.TryCount >= maxAttempts:
		e.Status = StatusFailed
		e.NextAttempt = nil
	default:
		e.Status = StatusErrored
		at := now.Add(backoff(e.TryCount))
		e.NextAttempt = &at
	}
	return nil
}

// Requeue puts a permanently failed event back in line for delivery.
func (e *Event) Requeue(now time.Time) error {
	if e.Status != StatusFailed {
		return ErrNotRequeueable
	}
	e.Status = StatusQueued
	e.TryCount = 0
	at := now
	e.NextAttempt = &at
	return nil
}

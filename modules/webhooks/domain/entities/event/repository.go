package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FindParams struct {
	Status        []Status
	Kind          Kind
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// Repository persists events. Create, GetByID, List, Count and
// CountFailingSince are tenant-scoped through the context; ListDue, Claim,
// Update and DeleteTerminalBefore serve the delivery worker and span tenants.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, params *FindParams) ([]*Event, error)
	Count(ctx context.Context, params *FindParams) (int64, error)

	// CountFailingSince counts the tenant's events created at or after since
	// whose status is failed or errored.
	CountFailingSince(ctx context.Context, since time.Time) (int64, error)

	// ListDue returns up to limit events eligible for a delivery attempt,
	// oldest schedule first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Event, error)

	// QueueDepth reports how many non-terminal events are due at now and how
	// many are scheduled for later (retry backoff or an active lease).
	QueueDepth(ctx context.Context, now time.Time) (due int64, scheduled int64, err error)

	// Claim marks the event as in-flight by pushing NextAttempt to leaseUntil,
	// guarded on the event still being due with TryCount == expectedTryCount.
	// It returns the fresh row, or ErrClaimConflict when another worker won.
	Claim(ctx context.Context, id uuid.UUID, expectedTryCount int, leaseUntil time.Time) (*Event, error)

	// Update writes the event's status, try count and schedule, guarded on the
	// stored TryCount still being expectedTryCount. ErrClaimConflict when not.
	Update(ctx context.Context, e *Event, expectedTryCount int) error

	// DeleteTerminalBefore drops completed events created before the cutoff
	// and failed events created before failedCutoff, returning rows removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time, failedCutoff time.Time) (int64, error)
}

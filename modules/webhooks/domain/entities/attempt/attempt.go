package attempt

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Result string

const (
	ResultSuccess      Result = "success"
	ResultNetworkError Result = "network_error"
	ResultTimeout      Result = "timeout"
)

// Outcome is what a single delivery attempt produced. StatusCode and Body are
// meaningful only for ResultSuccess, Reason only for transport failures.
type Outcome struct {
	Result     Result
	StatusCode int
	Body       string
	Reason     string
}

// Delivered reports whether a response was received, whatever its status
// code. A 500 from the destination still counts as delivered for retry
// purposes.
func (o Outcome) Delivered() bool {
	return o.Result == ResultSuccess
}

func Success(statusCode int, body string) Outcome {
	return Outcome{Result: ResultSuccess, StatusCode: statusCode, Body: body}
}

func NetworkError(reason string) Outcome {
	return Outcome{Result: ResultNetworkError, Reason: reason}
}

func Timeout(reason string) Outcome {
	return Outcome{Result: ResultTimeout, Reason: reason}
}

// Attempt is one recorded delivery try. Rows are append-only and never
// mutated after creation.
type Attempt struct {
	ID           uint
	EventID      uuid.UUID
	AttemptIndex int
	Outcome
	RequestedAt time.Time
	Duration    time.Duration
}

type Repository interface {
	Append(ctx context.Context, a *Attempt) error
	// ListByEvent returns the event's attempts ordered by attempt index.
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Attempt, error)
}

package mappers

import (
	"fmt"
	"time"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/relay"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/viewmodels"
)

func EventToViewModel(e *event.Event) *viewmodels.Event {
	vm := &viewmodels.Event{
		ID:             e.ID.String(),
		TenantID:       e.TenantID.String(),
		Kind:           string(e.Kind),
		Payload:        e.Payload,
		DestinationURL: e.DestinationURL,
		Status:         string(e.Status),
		TryCount:       e.TryCount,
		NextDelivery:   NextDeliveryPhrase(e),
		CreatedOn:      e.CreatedAt.Format(time.RFC3339),
	}
	if e.NextAttempt != nil {
		at := e.NextAttempt.Format(time.RFC3339)
		vm.NextAttempt = &at
	}
	return vm
}

// NextDeliveryPhrase renders the human-readable retry schedule shown next to
// an event.
func NextDeliveryPhrase(e *event.Event) string {
	if e.NextAttempt != nil {
		return fmt.Sprintf("Around %s", e.NextAttempt.Format(time.RFC3339))
	}
	if e.Status == event.StatusCompleted {
		return "Never, event delivered successfully"
	}
	if e.TryCount == event.DefaultMaxAttempts {
		return "Never, three attempts errored, failed permanently"
	}
	return "Never, event delivery failed permanently"
}

func AttemptToViewModel(a *attempt.Attempt) *viewmodels.Attempt {
	vm := &viewmodels.Attempt{
		AttemptIndex: a.AttemptIndex,
		Result:       string(a.Result),
		Body:         a.Body,
		Reason:       a.Reason,
		RequestedAt:  a.RequestedAt.Format(time.RFC3339),
		DurationMS:   a.Duration.Milliseconds(),
	}
	if a.StatusCode != 0 {
		code := a.StatusCode
		vm.StatusCode = &code
	}
	return vm
}

func SummaryToViewModel(failing int64) *viewmodels.Summary {
	return &viewmodels.Summary{
		FailedWebhooks:     failing > 0,
		WebhookErrorsCount: failing,
	}
}

func EndpointToViewModel(ep relay.Endpoint) *viewmodels.Endpoint {
	fields := make([]viewmodels.EndpointField, 0, len(ep.Fields))
	for _, f := range ep.Fields {
		fields = append(fields, viewmodels.EndpointField{
			Name:    f.Name,
			Help:    f.Help,
			Default: f.Default,
		})
	}
	return &viewmodels.Endpoint{
		Event:  string(ep.Event),
		Title:  ep.Title,
		Color:  ep.Color,
		Fields: fields,
	}
}

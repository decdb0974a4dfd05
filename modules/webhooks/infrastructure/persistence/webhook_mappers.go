package persistence

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/persistence/models"
)

func toDBWebhookEvent(e *event.Event) *models.WebhookEvent {
	return &models.WebhookEvent{
		ID:             e.ID.String(),
		TenantID:       e.TenantID.String(),
		Kind:           string(e.Kind),
		Payload:        e.Payload.Encode(),
		DestinationURL: e.DestinationURL,
		Status:         string(e.Status),
		TryCount:       e.TryCount,
		NextAttempt:    e.NextAttempt,
		CreatedAt:      e.CreatedAt,
	}
}

func toDomainWebhookEvent(dbEvent *models.WebhookEvent) *event.Event {
	id, err := uuid.Parse(dbEvent.ID)
	if err != nil {
		id = uuid.Nil
	}
	tenantID, err := uuid.Parse(dbEvent.TenantID)
	if err != nil {
		tenantID = uuid.Nil
	}
	// Stored payloads are url.Values.Encode output; ParseQuery keeps the
	// pairs it managed to parse even on error.
	payload, err := url.ParseQuery(dbEvent.Payload)
	if err != nil && len(payload) == 0 {
		payload = url.Values{}
	}

	return &event.Event{
		ID:             id,
		TenantID:       tenantID,
		Kind:           event.Kind(dbEvent.Kind),
		Payload:        payload,
		DestinationURL: dbEvent.DestinationURL,
		Status:         event.Status(dbEvent.Status),
		TryCount:       dbEvent.TryCount,
		NextAttempt:    dbEvent.NextAttempt,
		CreatedAt:      dbEvent.CreatedAt,
	}
}

func toDBWebhookAttempt(a *attempt.Attempt) *models.WebhookAttempt {
	dbRow := &models.WebhookAttempt{
		ID:           a.ID,
		EventID:      a.EventID.String(),
		AttemptIndex: a.AttemptIndex,
		Result:       string(a.Result),
		Body:         a.Body,
		Reason:       a.Reason,
		RequestedAt:  a.RequestedAt,
		DurationMS:   a.Duration.Milliseconds(),
	}
	if a.StatusCode != 0 {
		code := a.StatusCode
		dbRow.StatusCode = &code
	}
	return dbRow
}

func toDomainWebhookAttempt(dbRow *models.WebhookAttempt) *attempt.Attempt {
	eventID, err := uuid.Parse(dbRow.EventID)
	if err != nil {
		eventID = uuid.Nil
	}

	out := attempt.Outcome{
		Result: attempt.Result(dbRow.Result),
		Body:   dbRow.Body,
		Reason: dbRow.Reason,
	}
	if dbRow.StatusCode != nil {
		out.StatusCode = *dbRow.StatusCode
	}

	return &attempt.Attempt{
		ID:           dbRow.ID,
		EventID:      eventID,
		AttemptIndex: dbRow.AttemptIndex,
		Outcome:      out,
		RequestedAt:  dbRow.RequestedAt,
		Duration:     time.Duration(dbRow.DurationMS) * time.Millisecond,
	}
}

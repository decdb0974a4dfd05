package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/attempt"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/persistence/models"
	"github.com/iota-uz/hookrelay/pkg/composables"
)

// WebhookAttemptRepository is not tenant-scoped: attempts are only reachable
// through their owning event, which is.
type WebhookAttemptRepository struct{}

func NewWebhookAttemptRepository() attempt.Repository {
	return &WebhookAttemptRepository{}
}

func (r *WebhookAttemptRepository) Append(ctx context.Context, a *attempt.Attempt) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBWebhookAttempt(a)
	return tx.QueryRow(
		ctx,
		`INSERT INTO webhook_attempts (event_id, attempt_index, result, status_code, body, reason, requested_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		dbRow.EventID,
		dbRow.AttemptIndex,
		dbRow.Result,
		dbRow.StatusCode,
		dbRow.Body,
		dbRow.Reason,
		dbRow.RequestedAt,
		dbRow.DurationMS,
	).Scan(&a.ID)
}

func (r *WebhookAttemptRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*attempt.Attempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, event_id, attempt_index, result, status_code, body, reason, requested_at, duration_ms
		FROM webhook_attempts
		WHERE event_id = $1
		ORDER BY attempt_index ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*attempt.Attempt
	for rows.Next() {
		var dbRow models.WebhookAttempt
		if err := rows.Scan(
			&dbRow.ID,
			&dbRow.EventID,
			&dbRow.AttemptIndex,
			&dbRow.Result,
			&dbRow.StatusCode,
			&dbRow.Body,
			&dbRow.Reason,
			&dbRow.RequestedAt,
			&dbRow.DurationMS,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainWebhookAttempt(&dbRow))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

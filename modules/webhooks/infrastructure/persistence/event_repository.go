package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/persistence/models"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/repo"
)

const webhookEventFields = `id, tenant_id, kind, payload, destination_url, status, try_count, next_attempt, created_at`

// dueCondition is shared by ListDue, QueueDepth and Claim so a claim can
// never pick up an event the list query would not have returned. Events
// without a destination URL stay queued forever.
const dueCondition = `status IN ('queued', 'errored') AND destination_url <> '' AND next_attempt IS NOT NULL`

type WebhookEventRepository struct{}

func NewWebhookEventRepository() event.Repository {
	return &WebhookEventRepository{}
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *event.Event) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBWebhookEvent(e)
	if e.TenantID == uuid.Nil {
		dbRow.TenantID = tenantID.String()
		e.TenantID = tenantID
	}

	return tx.QueryRow(
		ctx,
		`INSERT INTO webhook_events (tenant_id, kind, payload, destination_url, status, try_count, next_attempt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 RETURNING id, next_attempt, created_at`,
		dbRow.TenantID,
		dbRow.Kind,
		dbRow.Payload,
		dbRow.DestinationURL,
		dbRow.Status,
		dbRow.TryCount,
	).Scan(&e.ID, &e.NextAttempt, &e.CreatedAt)
}

func (r *WebhookEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(
		ctx,
		`SELECT `+webhookEventFields+` FROM webhook_events WHERE tenant_id = $1 AND id = $2`,
		tenantID,
		id,
	)
	e, err := scanWebhookEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *WebhookEventRepository) List(ctx context.Context, params *event.FindParams) ([]*event.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildWebhookEventFilters(params, tenantID)
	query := `
		SELECT ` + webhookEventFields + `
		FROM webhook_events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWebhookEvents(rows)
}

func (r *WebhookEventRepository) Count(ctx context.Context, params *event.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildWebhookEventFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM webhook_events
		WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WebhookEventRepository) CountFailingSince(ctx context.Context, since time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM webhook_events
		WHERE tenant_id = $1 AND status IN ('failed', 'errored') AND created_at >= $2`,
		tenantID,
		since,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WebhookEventRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*event.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+webhookEventFields+`
		FROM webhook_events
		WHERE `+dueCondition+` AND next_attempt <= $1
		ORDER BY next_attempt ASC
		LIMIT $2`,
		now,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWebhookEvents(rows)
}

func (r *WebhookEventRepository) QueueDepth(ctx context.Context, now time.Time) (int64, int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, 0, err
	}

	var due, scheduled int64
	if err := tx.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE next_attempt <= $1),
			COUNT(*) FILTER (WHERE next_attempt > $1)
		FROM webhook_events
		WHERE `+dueCondition,
		now,
	).Scan(&due, &scheduled); err != nil {
		return 0, 0, err
	}
	return due, scheduled, nil
}

func (r *WebhookEventRepository) Claim(ctx context.Context, id uuid.UUID, expectedTryCount int, leaseUntil time.Time) (*event.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE webhook_events
		SET next_attempt = $1
		WHERE id = $2 AND try_count = $3 AND `+dueCondition+` AND next_attempt <= now()
		RETURNING `+webhookEventFields,
		leaseUntil,
		id,
		expectedTryCount,
	)
	e, err := scanWebhookEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrClaimConflict
		}
		return nil, err
	}
	return e, nil
}

func (r *WebhookEventRepository) Update(ctx context.Context, e *event.Event, expectedTryCount int) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBWebhookEvent(e)
	tag, err := tx.Exec(ctx, `
		UPDATE webhook_events
		SET status = $1, try_count = $2, next_attempt = $3
		WHERE id = $4 AND try_count = $5`,
		dbRow.Status,
		dbRow.TryCount,
		dbRow.NextAttempt,
		e.ID,
		expectedTryCount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return event.ErrClaimConflict
	}
	return nil
}

func (r *WebhookEventRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time, failedCutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var failedArg *time.Time
	if !failedCutoff.IsZero() {
		failedArg = &failedCutoff
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM webhook_events
		WHERE (status = 'completed' AND created_at < $1)
		   OR (status = 'failed' AND $2::timestamptz IS NOT NULL AND created_at < $2)`,
		cutoff,
		failedArg,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildWebhookEventFilters(params *event.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2
	if params == nil {
		return where, args
	}

	if len(params.Status) > 0 {
		placeholders := make([]string, 0, len(params.Status))
		for _, s := range params.Status {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argPos))
			args = append(args, string(s))
			argPos++
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if params.Kind != "" {
		where = append(where, fmt.Sprintf("kind = $%d", argPos))
		args = append(args, string(params.Kind))
		argPos++
	}
	if params.CreatedAfter != nil && !params.CreatedAfter.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *params.CreatedAfter)
		argPos++
	}
	if params.CreatedBefore != nil && !params.CreatedBefore.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *params.CreatedBefore)
	}
	return where, args
}

func scanWebhookEvent(row pgx.Row) (*event.Event, error) {
	var dbRow models.WebhookEvent
	if err := row.Scan(
		&dbRow.ID,
		&dbRow.TenantID,
		&dbRow.Kind,
		&dbRow.Payload,
		&dbRow.DestinationURL,
		&dbRow.Status,
		&dbRow.TryCount,
		&dbRow.NextAttempt,
		&dbRow.CreatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainWebhookEvent(&dbRow), nil
}

func collectWebhookEvents(rows pgx.Rows) ([]*event.Event, error) {
	var results []*event.Event
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

package main

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/pkg/repo"
)

// Read commands query straight over database/sql so an operator can inspect
// the queue even when the service's pool is saturated. Writes still go
// through the service layer and its guards.

const eventColumns = `id, tenant_id, kind, payload, destination_url, status, try_count, next_attempt, created_at`

type eventRow struct {
	ID             string       `db:"id"`
	TenantID       string       `db:"tenant_id"`
	Kind           string       `db:"kind"`
	Payload        string       `db:"payload"`
	DestinationURL string       `db:"destination_url"`
	Status         string       `db:"status"`
	TryCount       int          `db:"try_count"`
	NextAttempt    sql.NullTime `db:"next_attempt"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r eventRow) toDomain() *event.Event {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.Nil
	}
	tenantID, err := uuid.Parse(r.TenantID)
	if err != nil {
		tenantID = uuid.Nil
	}
	payload, err := url.ParseQuery(r.Payload)
	if err != nil && len(payload) == 0 {
		payload = url.Values{}
	}

	e := &event.Event{
		ID:             id,
		TenantID:       tenantID,
		Kind:           event.Kind(r.Kind),
		Payload:        payload,
		DestinationURL: r.DestinationURL,
		Status:         event.Status(r.Status),
		TryCount:       r.TryCount,
		CreatedAt:      r.CreatedAt,
	}
	if r.NextAttempt.Valid {
		next := r.NextAttempt.Time
		e.NextAttempt = &next
	}
	return e
}

type eventsFilter struct {
	TenantID uuid.UUID
	Kind     event.Kind
	Statuses []event.Status
	Limit    int
	Offset   int
}

func eventsWhere(f eventsFilter) (string, []interface{}, error) {
	clause := ` WHERE tenant_id = ?`
	args := []interface{}{f.TenantID.String()}
	if f.Kind != "" {
		clause += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		var err error
		clause, args, err = sqlx.In(clause+` AND status IN (?)`, append(args, statuses)...)
		if err != nil {
			return "", nil, err
		}
	}
	return clause, args, nil
}

func listEventsSQL(f eventsFilter) (string, []interface{}, error) {
	where, args, err := eventsWhere(f)
	if err != nil {
		return "", nil, err
	}
	query := `SELECT ` + eventColumns + ` FROM webhook_events` + where + ` ORDER BY created_at DESC`
	if clause := repo.FormatLimitOffset(f.Limit, f.Offset); clause != "" {
		query += " " + clause
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args, nil
}

func countEventsSQL(f eventsFilter) (string, []interface{}, error) {
	where, args, err := eventsWhere(f)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, `SELECT COUNT(*) FROM webhook_events`+where), args, nil
}

func fetchEvents(ctx context.Context, db *sqlx.DB, f eventsFilter) ([]*event.Event, int64, error) {
	query, args, err := listEventsSQL(f)
	if err != nil {
		return nil, 0, err
	}
	var rows []eventRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := countEventsSQL(f)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	events := make([]*event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toDomain())
	}
	return events, total, nil
}

func fetchFailingCount(ctx context.Context, db *sqlx.DB, tenantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM webhook_events WHERE tenant_id = $1 AND status IN ('failed', 'errored') AND created_at >= $2`,
		tenantID.String(),
		since,
	)
	return count, err
}

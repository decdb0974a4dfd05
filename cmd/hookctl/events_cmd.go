package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/mappers"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/viewmodels"
)

func newEventsCmd() *cobra.Command {
	var (
		tenantID string
		kind     string
		statuses []string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List a tenant's webhook events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			parsed, err := parseStatuses(statuses)
			if err != nil {
				return err
			}

			db, err := connectSQLX(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			start := time.Now()
			items, total, err := fetchEvents(cmd.Context(), db, eventsFilter{
				TenantID: tid,
				Kind:     event.Kind(strings.TrimSpace(kind)),
				Statuses: parsed,
				Limit:    limit,
				Offset:   offset,
			})
			if err != nil {
				return err
			}

			out := make([]*viewmodels.Event, 0, len(items))
			for _, e := range items {
				out = append(out, mappers.EventToViewModel(e))
			}
			return writeJSON(cmdOutput{
				Command:    "events",
				DurationMS: time.Since(start).Milliseconds(),
				Result: map[string]any{
					"items": out,
					"total": total,
				},
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by event kind")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func parseStatuses(raw []string) ([]event.Status, error) {
	out := make([]event.Status, 0, len(raw))
	seen := make(map[event.Status]struct{}, len(raw))
	for _, r := range raw {
		s := event.Status(strings.TrimSpace(r))
		if s == "" {
			continue
		}
		switch s {
		case event.StatusQueued, event.StatusErrored, event.StatusFailed, event.StatusCompleted:
		default:
			return nil, fmt.Errorf("unknown status %q", r)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

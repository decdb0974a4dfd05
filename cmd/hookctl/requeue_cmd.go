package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/persistence"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/mappers"
	"github.com/iota-uz/hookrelay/modules/webhooks/services"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/configuration"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
)

func newRequeueCmd() *cobra.Command {
	var (
		tenantID string
		eventID  string
	)

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Put a permanently failed event back in the delivery queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			eid, err := uuid.Parse(eventID)
			if err != nil {
				return fmt.Errorf("invalid --event: %w", err)
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			ctx = composables.WithTenantID(ctx, tid)
			svc := services.NewEventService(
				persistence.NewWebhookEventRepository(),
				persistence.NewWebhookAttemptRepository(),
				eventbus.NewEventPublisher(configuration.Use().Logger()),
			)

			start := time.Now()
			requeued, err := svc.Requeue(ctx, eid)
			if err != nil {
				return err
			}

			return writeJSON(cmdOutput{
				Command:    "requeue",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     mappers.EventToViewModel(requeued),
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().StringVar(&eventID, "event", "", "Event UUID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

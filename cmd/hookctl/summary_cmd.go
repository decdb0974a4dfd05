package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/mappers"
)

func newSummaryCmd() *cobra.Command {
	var (
		tenantID string
		window   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count a tenant's failing webhook events over the past window",
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}

			db, err := connectSQLX(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			start := time.Now()
			failing, err := fetchFailingCount(cmd.Context(), db, tid, time.Now().Add(-window))
			if err != nil {
				return err
			}

			return writeJSON(cmdOutput{
				Command:    "summary",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     mappers.SummaryToViewModel(failing),
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().DurationVar(&window, "window", time.Hour, "Lookback window")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hookctl",
		Short: "Webhook delivery engine admin tools",
	}
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newRequeueCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/hookrelay/modules"
	"github.com/iota-uz/hookrelay/pkg/application"
	"github.com/iota-uz/hookrelay/pkg/configuration"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := configuration.Use().Logger()
			app := application.New(&application.ApplicationOptions{
				Pool:     pool,
				EventBus: eventbus.NewEventPublisher(logger),
				Logger:   logger,
			})
			if err := modules.Load(app, modules.BuiltInModules...); err != nil {
				return err
			}
			return app.Migrations().Run(cmd.Context())
		},
	}
}

package webhooks

import (
	"embed"

	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/delivery"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/persistence"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/controllers"
	"github.com/iota-uz/hookrelay/modules/webhooks/services"
	"github.com/iota-uz/hookrelay/pkg/application"
	"github.com/iota-uz/hookrelay/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	app.Migrations().RegisterSchema(&migrationFiles)
	app.RegisterServices(
		services.NewEventService(
			persistence.NewWebhookEventRepository(),
			persistence.NewWebhookAttemptRepository(),
			app.EventPublisher(),
		),
		services.NewRelayService(
			delivery.NewHTTPDispatcher(conf.Relay.ResponseMaxBytes),
			conf.Relay.Timeout,
		),
	)
	app.RegisterControllers(
		controllers.NewEventsAPIController(app),
		controllers.NewRelayController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "webhooks"
}

package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/iota-uz/hookrelay/internal/server"
	"github.com/iota-uz/hookrelay/modules"
	"github.com/iota-uz/hookrelay/modules/webhooks/handlers"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/delivery"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/persistence"
	"github.com/iota-uz/hookrelay/pkg/application"
	"github.com/iota-uz/hookrelay/pkg/configuration"
	"github.com/iota-uz/hookrelay/pkg/eventbus"
	"github.com/iota-uz/hookrelay/pkg/logging"
	"github.com/iota-uz/hookrelay/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	// Set up OpenTelemetry if enabled
	var tracingCleanup func()
	if conf.OpenTelemetry.Enabled {
		tracingCleanup = logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.Endpoint,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.Endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), time.Minute)
	defer migrateCancel()
	if err := app.Migrations().Run(migrateCtx); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	startDeliveryBackground(conf, pool, logger, app)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	options := &server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	}
	serverInstance, err := server.Default(options)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func startDeliveryBackground(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	app application.Application,
) {
	deliveryLog := logger.WithField("component", "delivery")

	events := persistence.NewWebhookEventRepository()
	attempts := persistence.NewWebhookAttemptRepository()

	if conf.Delivery.Enabled {
		worker, err := delivery.NewWorker(
			pool,
			events,
			attempts,
			delivery.NewHTTPDispatcher(int64(conf.Delivery.ResponseMaxBytes)),
			app.EventPublisher(),
			delivery.WorkerOptions{
				PollInterval:     conf.Delivery.PollInterval,
				BatchSize:        conf.Delivery.BatchSize,
				LeaseTTL:         conf.Delivery.LeaseTTL,
				MaxAttempts:      conf.Delivery.MaxAttempts,
				SingleActive:     conf.Delivery.SingleActive,
				MaxBackoff:       conf.Delivery.MaxBackoff,
				JitterMax:        conf.Delivery.JitterMax,
				DispatchTimeout:  conf.Delivery.DispatchTimeout,
				ResponseMaxBytes: conf.Delivery.ResponseMaxBytes,
				Logger:           deliveryLog,
			},
		)
		if err != nil {
			deliveryLog.WithError(err).Warn("webhooks: failed to create delivery worker")
		} else {
			handlers.RegisterDeliveryEventHandlers(app, worker)
			go func() {
				if err := worker.Run(context.Background()); err != nil {
					deliveryLog.WithError(err).Error("webhooks: delivery worker stopped")
				}
			}()
		}
	} else {
		deliveryLog.Info("webhooks: delivery worker disabled")
	}

	if conf.Delivery.CleanerEnabled {
		cleaner, err := delivery.NewCleaner(pool, events, delivery.CleanerOptions{
			Enabled:         true,
			Interval:        conf.Delivery.CleanerInterval,
			Retention:       conf.Delivery.Retention,
			FailedRetention: conf.Delivery.FailedRetention,
			Logger:          deliveryLog,
		})
		if err != nil {
			deliveryLog.WithError(err).Warn("webhooks: failed to create cleaner")
			return
		}
		go func() {
			if err := cleaner.Run(context.Background()); err != nil {
				deliveryLog.WithError(err).Error("webhooks: cleaner stopped")
			}
		}()
	}
}

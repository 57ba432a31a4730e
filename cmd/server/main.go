package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/internal/server"
	"github.com/syurii10/cloud-optimization-project/modules"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/configuration"
	"github.com/syurii10/cloud-optimization-project/pkg/eventbus"
	"github.com/syurii10/cloud-optimization-project/pkg/logging"
	"github.com/syurii10/cloud-optimization-project/pkg/metrics"
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
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	// Registered ahead of the modules: the dashboard ends with a catch-all
	// file server that would otherwise shadow the metrics path.
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"root":      conf.Dashboard.RootDir,
		"instances": conf.Dashboard.InstanceLabels,
	}).Infof("Listening on: %s", conf.Origin)
	if err := serverInstance.Start(ctx, conf.SocketAddress, conf.ShutdownTimeout); err != nil {
		logger.WithError(err).Error("server stopped")
		stop()
		conf.Unload()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

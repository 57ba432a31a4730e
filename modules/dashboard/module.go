package dashboard

import (
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/handlers"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/infrastructure/metrics"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/infrastructure/orchestrator"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/infrastructure/resultstore"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/presentation/controllers"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/services"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
	"github.com/syurii10/cloud-optimization-project/pkg/configuration"
)

type ModuleOptions struct {
	Configuration *configuration.Configuration
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := m.options.Configuration
	if conf == nil {
		conf = configuration.Use()
	}
	d := conf.Dashboard

	snapshots, err := services.NewSnapshotService(
		resultstore.NewFileStore(d.RootDir),
		d.InstanceLabels,
		services.WithBuildObserver(metrics.RecordSnapshotBuild),
	)
	if err != nil {
		return err
	}
	launcher, err := orchestrator.NewExecLauncher(
		d.OrchestratorCommand,
		d.RootDir,
		app.Logger().WithField("component", "orchestrator"),
	)
	if err != nil {
		return err
	}
	tracker := services.NewTrackerService(
		orchestrator.NewConfigFile(d.Resolve(d.OrchestratorConfigFile)),
		launcher,
		app.EventPublisher(),
		app.Logger().WithField("component", "tracker"),
		d.InstanceLabels,
	)
	reportsStore := resultstore.NewFileStore(d.Resolve(d.ReportsDir))
	reports := services.NewReportService(reportsStore, resultstore.NewFileStore(d.Resolve(d.ChartsDir)))
	optimizer := services.NewOptimizationService(reportsStore, app.EventPublisher())
	app.RegisterServices(snapshots, tracker, reports, optimizer)
	metrics.UseReportSource(reports)

	// Route order matters: the report controller ends with the /api/
	// fallback and the pages controller with the "/" file server.
	app.RegisterControllers(
		controllers.NewDashboardAPIController(app),
		controllers.NewOptimizationAPIController(app),
		controllers.NewReportAPIController(app),
		controllers.NewPagesController(d.RootDir, conf.GoAppEnvironment == configuration.Production),
	)
	handlers.RegisterRunEventHandlers(app)
	handlers.RegisterOptimizationEventHandlers(app)
	return nil
}

func (m *Module) Name() string {
	return "dashboard"
}

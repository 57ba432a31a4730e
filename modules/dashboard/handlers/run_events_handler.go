package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/infrastructure/metrics"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
)

type RunEventsHandler struct {
	logger *logrus.Logger
}

func RegisterRunEventHandlers(app application.Application) {
	handler := &RunEventsHandler{logger: app.Logger()}
	app.EventPublisher().Subscribe(handler.onRunStarted)
	app.EventPublisher().Subscribe(handler.onRunFinished)
}

func (h *RunEventsHandler) onRunStarted(event *testrun.StartedEvent) {
	metrics.RecordRunStarted()
	if h.logger != nil {
		h.logger.WithField("test-id", event.Run.ID).Debug("run started event handled")
	}
}

func (h *RunEventsHandler) onRunFinished(event *testrun.FinishedEvent) {
	metrics.RecordRunFinished(event.ExitCode, event.Err, event.Duration)
	if h.logger == nil {
		return
	}
	entry := h.logger.WithFields(logrus.Fields{
		"test-id":   event.Run.ID,
		"exit-code": event.ExitCode,
		"duration":  event.Duration.String(),
	})
	if event.ExitCode != 0 || event.Err != nil {
		entry.Warn("orchestrator exited with failure")
		return
	}
	entry.Debug("run finished event handled")
}

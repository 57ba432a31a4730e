package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/optimization"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/infrastructure/metrics"
	"github.com/syurii10/cloud-optimization-project/pkg/application"
)

type OptimizationEventsHandler struct {
	logger *logrus.Logger
}

func RegisterOptimizationEventHandlers(app application.Application) {
	handler := &OptimizationEventsHandler{logger: app.Logger()}
	app.EventPublisher().Subscribe(handler.onCompleted)
}

func (h *OptimizationEventsHandler) onCompleted(event *optimization.CompletedEvent) {
	metrics.RecordOptimization(event.Custom)
	if h.logger == nil {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"best-alternative": event.Result.BestAlternative,
		"score":            event.Result.Recommendation.Score,
		"custom-weights":   event.Custom,
	}).Debug("optimization completed event handled")
}

package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/pkg/constants"
	"github.com/syurii10/cloud-optimization-project/pkg/logging"
)

// WithLogger returns a new context carrying the request-scoped logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context.
// Handlers reached without the logging middleware get a discarding logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok || logger == nil {
		return logging.Nop()
	}
	return logger
}

// UseRequestID returns the request id assigned by the logging middleware.
func UseRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(constants.RequestIDKey).(string)
	return id, ok
}

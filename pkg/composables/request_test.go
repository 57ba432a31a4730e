package composables

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestUseLogger_FallsBackToNop(t *testing.T) {
	entry := UseLogger(context.Background())
	assert.NotNil(t, entry)
	assert.Equal(t, logrus.PanicLevel, entry.Logger.GetLevel())
}

func TestUseLogger_ReturnsAttachedEntry(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := WithLogger(context.Background(), logger.WithField("request-id", "abc"))

	UseLogger(ctx).Info("hello")

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, "abc", entry.Data["request-id"])
	}
}

func TestUseRequestID(t *testing.T) {
	_, ok := UseRequestID(context.Background())
	assert.False(t, ok)
}

package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithMeetingID(ctx, "conferenceRecords/abc")
	l.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "conferenceRecords/abc", fields["meeting_id"])
}

func TestWithContextSkipsMissingFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	l.WithContext(WithRequestID(context.Background(), "req-1")).Info("hello")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.NotContains(t, fields, "user_id")
	assert.NotContains(t, fields, "meeting_id")
	assert.Equal(t, "req-1", RequestID(WithRequestID(context.Background(), "req-1")))
	assert.Empty(t, RequestID(context.Background()))
}

func TestNewHonoursLevel(t *testing.T) {
	l := New(ProductionMode, WithLevel("WARN"))
	assert.False(t, l.Logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Logger.Core().Enabled(zapcore.WarnLevel))

	l = New(ProductionMode, WithLevel("nonsense"))
	assert.True(t, l.Logger.Core().Enabled(zapcore.InfoLevel))
}

package observe

import (
	"context"
	"sort"
	"strings"

	"recap-mail/pkg/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapObserver writes each event as a structured log line.
type ZapObserver struct {
	log *logger.Logger
}

func NewZapObserver(log *logger.Logger) *ZapObserver {
	return &ZapObserver{log: log}
}

func (o *ZapObserver) OnEvent(ctx context.Context, stage Stage, fields Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zf := make([]zap.Field, 0, len(keys)+1)
	zf = append(zf, zap.String("stage", string(stage)))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}

	l := o.log.WithContext(ctx)
	if ce := l.Check(levelFor(stage), string(stage)); ce != nil {
		ce.Write(zf...)
	}
}

func levelFor(stage Stage) zapcore.Level {
	s := string(stage)
	switch {
	case stage == SubscriptionUnresolved, stage == DraftPersistFailed:
		return zapcore.ErrorLevel
	case strings.HasSuffix(s, "_failed"), stage == SubscriptionConflict, stage == SubscriptionExpired, stage == DraftFailed:
		return zapcore.WarnLevel
	case stage == DraftAttempt, stage == SubscriptionDiscover:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

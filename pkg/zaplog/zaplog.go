// Package zaplog adapts go.uber.org/zap to container logging and activity
// hooks.
package zaplog

import (
	"context"

	"go.uber.org/zap"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/activity"
)

// New returns a props.Logger writing container events to logger. Successful
// operations log at debug level, failures at warn.
func New(logger *zap.Logger) props.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return props.LoggerFunc(func(event props.LogEvent) {
		fields := []zap.Field{
			zap.String("op", event.Op),
			zap.String("schema", event.Schema),
			zap.Duration("duration", event.Duration),
		}
		if event.ContainerID != "" {
			fields = append(fields, zap.String("container_id", event.ContainerID))
		}
		if event.Property != "" {
			fields = append(fields, zap.String("property", event.Property))
		}
		if event.Err != nil {
			logger.Warn("props operation failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("props operation", fields...)
	})
}

// Hook returns an activity hook that logs each event at info level.
func Hook(logger *zap.Logger) activity.ActivityHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return activity.HookFunc(func(_ context.Context, event activity.Event) error {
		logger.Info("props activity",
			zap.String("verb", event.Verb),
			zap.String("object_type", event.ObjectType),
			zap.String("object_id", event.ObjectID),
			zap.String("channel", event.Channel),
			zap.String("actor_id", event.ActorID),
			zap.Any("metadata", event.Metadata),
		)
		return nil
	})
}

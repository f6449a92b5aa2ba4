package publisher

import (
	"context"
	"log/slog"

	"licensing/internal/notification"
)

// Log writes events to the structured log. Used when no brokers are configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Publish(ctx context.Context, events []notification.Event) error {
	for _, e := range events {
		l.logger.InfoContext(ctx, "notification",
			"event_id", e.ID,
			"event_type", e.Type,
			"aggregate_id", e.AggregateID,
			"payload", string(e.Payload),
		)
	}
	return nil
}

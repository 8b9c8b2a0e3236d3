package notify

import (
	"context"
	"log/slog"

	"trialgate/internal/trial/models"
)

// LogPublisher writes notification requests to the structured log. It is the
// default backend when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, n models.Notification) error {
	attrs := []slog.Attr{
		slog.String("log_type", "notification"),
		slog.String("id", n.ID),
		slog.String("user_id", n.UserID.String()),
		slog.String("template", string(n.Template)),
		slog.Time("created_at", n.CreatedAt),
	}
	if n.DedupeKey != "" {
		attrs = append(attrs, slog.String("dedupe_key", n.DedupeKey))
	}
	for k, v := range n.Data {
		attrs = append(attrs, slog.String("data."+k, v))
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "notification", attrs...)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

package audit

import (
	"context"
	"log/slog"
	"time"

	"trialgate/pkg/requestcontext"
)

// Emitter writes audit events as structured log lines tagged log_type=audit.
// A nil *Emitter discards events.
type Emitter struct {
	logger *slog.Logger
}

func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// Emit stamps the event with request metadata and logs it.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = requestcontext.Now(ctx)
	}
	if ev.RequestID == "" {
		ev.RequestID = requestcontext.RequestID(ctx)
	}
	attrs := []slog.Attr{
		slog.String("log_type", "audit"),
		slog.String("category", string(ev.Action.Category())),
		slog.String("action", string(ev.Action)),
		slog.String("user_id", ev.UserID),
		slog.Time("timestamp", ev.Timestamp.UTC().Truncate(time.Millisecond)),
	}
	if ev.Decision != "" {
		attrs = append(attrs, slog.String("decision", ev.Decision))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	if ev.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", ev.ActorID))
	}
	if ev.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ev.RequestID))
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, string(ev.Action), attrs...)
}

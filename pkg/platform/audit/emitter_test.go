package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgate/pkg/requestcontext"
)

func TestEmitWritesAuditLine(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	e.Emit(ctx, Event{Action: ActionTamperDetected, UserID: "42", Reason: "clock_tamper"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["log_type"])
	assert.Equal(t, "security", line["category"])
	assert.Equal(t, "tamper_detected", line["action"])
	assert.Equal(t, "42", line["user_id"])
	assert.Equal(t, "clock_tamper", line["reason"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.NotContains(t, line, "actor_id")
}

func TestCategoryDefaultsToOperations(t *testing.T) {
	assert.Equal(t, CategoryOperations, ActionTrialStarted.Category())
	assert.Equal(t, CategorySecurity, ActionUserBanned.Category())
}

func TestNilEmitterIsNoop(t *testing.T) {
	var e *Emitter
	e.Emit(context.Background(), Event{Action: ActionTrialStarted})
}

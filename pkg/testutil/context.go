// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"trialgate/pkg/requestcontext"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// At returns a background context pinned to t.
func At(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// MustTime parses an RFC 3339 timestamp or panics.
func MustTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

// Package logging builds the process logger. Logs go to stderr so stdout
// carries only the conversation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type ctxKey string

const ctxKeyTurnID ctxKey = "turn_id"

// New returns a text or JSON slog.Logger at the given level. Unknown levels
// fall back to warn, unknown formats to text.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// WithTurnID stores the id of the turn being processed in ctx.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, ctxKeyTurnID, turnID)
}

// FromContext adds turn_id to logger if ctx carries one.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	id := TurnID(ctx)
	if id == "" {
		return logger
	}
	return logger.With(slog.String("turn_id", id))
}

// TurnID returns the turn id stored in ctx, or "" if there is none.
func TurnID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyTurnID).(string)
	return id
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"error":   slog.LevelError,
		"warn":    slog.LevelWarn,
		"verbose": slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for in, want := range testCases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONWithTurnID(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	ctx := WithTurnID(context.Background(), "turn-1")
	FromContext(ctx, logger).Info("hello")
	logger.Debug("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec["turn_id"] != "turn-1" || rec["msg"] != "hello" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestFromContextWithoutTurnID(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)
	FromContext(context.Background(), logger).Info("plain")
	if strings.Contains(buf.String(), "turn_id") {
		t.Errorf("unexpected turn_id in %q", buf.String())
	}
}

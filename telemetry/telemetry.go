// Package telemetry records the run of each turn as JSON lines: turn start and
// end, every think step and every tool call and result. Each event carries the
// turn id plus the configured tags and metadata, so runs can be grouped by
// app version and environment.
package telemetry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/logging"
	"github.com/tidwall/sjson"
)

// Event names.
const (
	EventTurnStart  = "turn_start"
	EventThink      = "think"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventTurnEnd    = "turn_end"
)

// Tracer appends events to a writer. A nil *Tracer drops every event.
type Tracer struct {
	mu       sync.Mutex
	w        io.Writer
	tags     []string
	metadata map[string]string
	now      func() time.Time
}

func New(w io.Writer, tags []string, metadata map[string]string) *Tracer {
	return &Tracer{w: w, tags: tags, metadata: metadata, now: time.Now}
}

// Open appends to the JSONL file at path, creating it and its directory.
// The returned func closes the file.
func Open(path string, tags []string, metadata map[string]string) (*Tracer, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create trace directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open trace file %s", path)
	}
	return New(f, tags, metadata), f.Close, nil
}

// Emit writes one event; fields follow the fixed keys.
// Tracing never fails a turn; write errors are dropped.
func (t *Tracer) Emit(ctx context.Context, name string, fields map[string]any) {
	if t == nil {
		return
	}
	line, err := t.encode(ctx, name, fields)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(append(line, '\n'))
}

func (t *Tracer) encode(ctx context.Context, name string, fields map[string]any) ([]byte, error) {
	line := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err != nil {
			return
		}
		line, err = sjson.SetBytes(line, path, v)
	}
	set("time", t.now().UTC().Format(time.RFC3339Nano))
	set("event", name)
	if id := logging.TurnID(ctx); id != "" {
		set("turn_id", id)
	}
	if len(t.tags) > 0 {
		set("tags", t.tags)
	}
	for k, v := range t.metadata {
		set("metadata."+k, v)
	}
	for k, v := range fields {
		set(k, v)
	}
	return line, err
}

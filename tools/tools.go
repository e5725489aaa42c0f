package tools

import (
	"context"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/grocery"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	// Schema describes the arguments Execute accepts. Provider adapters send
	// it to the model; Execute enforces it before doing anything.
	Schema() *jsonschema.Schema
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolRegistry holds all available tools.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

// NewToolRegistry binds the list tools to store. Additions are handed to
// queue and applied later; see AddToListTool.
func NewToolRegistry(store *grocery.Store, queue *WriteQueue, logger *slog.Logger) *ToolRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &ToolRegistry{tools: make(map[string]Tool)}
	r.Register(&AddToListTool{store: store, queue: queue, logger: logger})
	r.Register(&RetrieveListTool{store: store})
	return r
}

func (r *ToolRegistry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *ToolRegistry) GetTool(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the registered tools in registration order.
func (r *ToolRegistry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Dispatch runs the named tool with model-supplied arguments. Unknown names
// and arguments that fail the schema come back as errors for the model to see.
func (r *ToolRegistry) Dispatch(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := r.GetTool(name)
	if !ok {
		return "", errors.Wrapf(ErrUnknownTool, "tool '%s' is not registered", name)
	}
	return t.Execute(ctx, args)
}

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/llm"
	"github.com/m4xw311/grocer/logging"
	"github.com/m4xw311/grocer/session"
	"github.com/m4xw311/grocer/telemetry"
	"github.com/m4xw311/grocer/tools"
)

// DefaultMaxIterations bounds the think/act cycles of one turn.
const DefaultMaxIterations = config.DefaultMaxIterations

// ErrIterationLimit is returned when a turn runs out of think/act cycles
// without the model producing a final answer.
var ErrIterationLimit = errors.Sentinel("agent stopped after reaching the iteration limit")

// State is the position of a turn in the think/act cycle.
type State string

const (
	StateThinking              State = "thinking"
	StateToolCallRequested     State = "tool_call_requested"
	StateToolExecuting         State = "tool_executing"
	StateFinalAnswer           State = "final_answer"
	StateIterationLimitReached State = "iteration_limit_reached"
)

// ToolVerbosity controls how much of the tool activity an interface shows.
type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// ParseToolVerbosity accepts none, info or all.
func ParseToolVerbosity(s string) (ToolVerbosity, error) {
	switch v := ToolVerbosity(strings.ToLower(strings.TrimSpace(s))); v {
	case ToolVerbosityNone, ToolVerbosityInfo, ToolVerbosityAll:
		return v, nil
	case "":
		return ToolVerbosityNone, nil
	default:
		return "", errors.New("invalid tool verbosity '%s', expected none, info or all", s)
	}
}

// ProcessCallbacks lets an interface observe a turn. Every field is optional.
type ProcessCallbacks struct {
	OnStateChange func(state State, iteration int)
	OnToolCall    func(toolCall session.ToolCall)
	OnToolResult  func(toolCall session.ToolCall, result string)
	OnWarning     func(warning string)
}

type Agent struct {
	Config        *config.Config
	LLMClient     llm.LLMClient
	Registry      *tools.ToolRegistry
	Verbosity     ToolVerbosity
	MaxIterations int
	Logger        *slog.Logger
	// Tracer records turn events; nil disables tracing.
	Tracer        *telemetry.Tracer
}

func New(cfg *config.Config, client llm.LLMClient, registry *tools.ToolRegistry, verbosity ToolVerbosity) (*Agent, error) {
	if client == nil {
		return nil, errors.New("an LLM client is required")
	}
	if registry == nil {
		return nil, errors.New("a tool registry is required")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Agent{
		Config:        cfg,
		LLMClient:     client,
		Registry:      registry,
		Verbosity:     verbosity,
		MaxIterations: maxIterations,
		Logger:        slog.Default(),
	}, nil
}

// ProcessUserInput runs one turn: the model is called with the system prompt,
// the prior history and input, and any tool calls it requests are executed and
// answered until it produces a final answer.
//
// history is read, never modified. Recording the exchange is up to the caller.
func (a *Agent) ProcessUserInput(ctx context.Context, input string, history []session.Message, cb ProcessCallbacks) (string, error) {
	ctx = logging.WithTurnID(ctx, uuid.NewString())
	logger := logging.FromContext(ctx, a.Logger).With(a.runAttrs()...)

	messages := make([]session.Message, 0, len(history)+2)
	if a.Config.SystemPrompt != "" {
		messages = append(messages, session.Message{Role: session.RoleSystem, Content: a.Config.SystemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, session.Message{Role: session.RoleUser, Content: input})

	availableTools := a.Registry.Tools()
	logger.Debug("turn started", slog.Int("history", len(history)))
	a.Tracer.Emit(ctx, telemetry.EventTurnStart, map[string]any{"history": len(history), "input": input})

	for iteration := 1; iteration <= a.MaxIterations; iteration++ {
		notifyState(cb, StateThinking, iteration)
		reply, err := a.LLMClient.Chat(ctx, messages, availableTools)
		if err != nil {
			a.Tracer.Emit(ctx, telemetry.EventTurnEnd, map[string]any{"iterations": iteration, "outcome": "error", "error": err.Error()})
			return "", errors.Wrapf(err, "LLM chat failed")
		}
		a.Tracer.Emit(ctx, telemetry.EventThink, map[string]any{"iteration": iteration, "tool_calls": len(reply.ToolCalls)})

		if len(reply.ToolCalls) == 0 {
			notifyState(cb, StateFinalAnswer, iteration)
			logger.Debug("turn finished", slog.Int("iterations", iteration))
			a.Tracer.Emit(ctx, telemetry.EventTurnEnd, map[string]any{"iterations": iteration, "outcome": "answer"})
			return reply.Content, nil
		}

		notifyState(cb, StateToolCallRequested, iteration)
		reply.Role = session.RoleAssistant
		messages = append(messages, *reply)

		notifyState(cb, StateToolExecuting, iteration)
		for _, call := range reply.ToolCalls {
			if cb.OnToolCall != nil {
				cb.OnToolCall(call)
			}
			result := a.executeTool(ctx, logger, call, cb)
			if cb.OnToolResult != nil {
				cb.OnToolResult(call, result)
			}
			messages = append(messages, session.ToolResult(call, result))
		}
	}

	notifyState(cb, StateIterationLimitReached, a.MaxIterations)
	logger.Warn("iteration limit reached", slog.Int("max_iterations", a.MaxIterations))
	a.Tracer.Emit(ctx, telemetry.EventTurnEnd, map[string]any{"iterations": a.MaxIterations, "outcome": "iteration_limit"})
	return "", errors.Wrapf(ErrIterationLimit, "no final answer after %d iterations", a.MaxIterations)
}

// executeTool runs one call. Failures are turned into a result the model can
// read and react to, e.g. by retrying with corrected arguments.
func (a *Agent) executeTool(ctx context.Context, logger *slog.Logger, call session.ToolCall, cb ProcessCallbacks) string {
	a.Tracer.Emit(ctx, telemetry.EventToolCall, map[string]any{"tool": call.Name, "call_id": call.ToolCallID, "args": call.Args})
	result, err := a.Registry.Dispatch(ctx, call.Name, call.Args)
	if err != nil {
		a.Tracer.Emit(ctx, telemetry.EventToolResult, map[string]any{"tool": call.Name, "call_id": call.ToolCallID, "error": err.Error()})
		logger.Info("tool call failed",
			slog.String("tool", call.Name),
			slog.Any("error", err))
		if cb.OnWarning != nil {
			cb.OnWarning(fmt.Sprintf("tool `%s` failed: %v", call.Name, err))
		}
		return "Error: " + err.Error()
	}
	logger.Debug("tool call succeeded", slog.String("tool", call.Name))
	a.Tracer.Emit(ctx, telemetry.EventToolResult, map[string]any{"tool": call.Name, "call_id": call.ToolCallID, "result": result})
	return result
}

// runAttrs tags a turn's log lines with the configured tracing tags and metadata.
func (a *Agent) runAttrs() []any {
	tracing := a.Config.Tracing
	attrs := make([]any, 0, len(tracing.Metadata)+1)
	if len(tracing.Tags) > 0 {
		attrs = append(attrs, slog.Any("tags", tracing.Tags))
	}
	for k, v := range tracing.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	return attrs
}

func notifyState(cb ProcessCallbacks, state State, iteration int) {
	if cb.OnStateChange != nil {
		cb.OnStateChange(state, iteration)
	}
}

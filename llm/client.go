package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/session"
	"github.com/m4xw311/grocer/tools"
)

// LLMClient is the interface for interacting with a Large Language Model.
//
// Chat returns either a final answer (no ToolCalls) or an assistant message
// carrying one or more tool calls the caller is expected to run and answer
// with tool messages.
type LLMClient interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// MockLLMClient answers without calling any provider. It never requests tools,
// so it is only useful to exercise the CLI offline.
type MockLLMClient struct{}

func (m *MockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("mock client received no messages")
	}
	last := messages[len(messages)-1]
	var names []string
	for _, t := range availableTools {
		names = append(names, t.Name())
	}
	return &session.Message{
		Role: session.RoleAssistant,
		Content: fmt.Sprintf("I am a mock assistant. You said: '%s'. Tools I could use: %s.",
			last.Content, strings.Join(names, ", ")),
	}, nil
}

// ScriptedLLMClient replays a fixed sequence of replies, one per Chat call.
// Tests use it to drive the agent through specific tool-call paths.
type ScriptedLLMClient struct {
	mu      sync.Mutex
	replies []ScriptedReply
	// Calls records the messages passed to each Chat call.
	Calls [][]session.Message
}

// ScriptedReply is one canned Chat result. If Err is set it is returned instead
// of Message.
type ScriptedReply struct {
	Message session.Message
	Err     error
}

func NewScriptedLLMClient(replies ...ScriptedReply) *ScriptedLLMClient {
	return &ScriptedLLMClient{replies: replies}
}

// Push appends more replies to the script.
func (s *ScriptedLLMClient) Push(replies ...ScriptedReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

func (s *ScriptedLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, append([]session.Message(nil), messages...))
	if len(s.replies) == 0 {
		return nil, errors.New("scripted client has no reply left for call %d", len(s.Calls))
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	msg := next.Message
	if msg.Role == "" {
		msg.Role = session.RoleAssistant
	}
	return &msg, nil
}

// Answer is a ScriptedReply carrying a final text answer.
func Answer(text string) ScriptedReply {
	return ScriptedReply{Message: session.Message{Role: session.RoleAssistant, Content: text}}
}

// CallTools is a ScriptedReply requesting the given tool calls.
func CallTools(calls ...session.ToolCall) ScriptedReply {
	return ScriptedReply{Message: session.Message{Role: session.RoleAssistant, ToolCalls: calls}}
}

// Fail is a ScriptedReply returning err.
func Fail(err error) ScriptedReply {
	return ScriptedReply{Err: err}
}

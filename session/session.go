package session

import "sync"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`
	// On an assistant message: the calls the model asked for.
	// On a tool message: exactly one entry naming the call being answered.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ToolCallID string         `json:"id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
}

// ToolResult builds the tool message that answers call.
func ToolResult(call ToolCall, content string) Message {
	return Message{
		Role:      RoleTool,
		Content:   content,
		ToolCalls: []ToolCall{{ToolCallID: call.ToolCallID, Name: call.Name}},
	}
}

// History is the ordered record of completed turns. Only whole turns are
// added; a turn that failed never reaches it.
type History struct {
	mu       sync.Mutex
	messages []Message
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// AddTurn records one completed turn: the user input followed by the
// assistant's final answer.
func (h *History) AddTurn(userInput, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages,
		Message{Role: RoleUser, Content: userInput},
		Message{Role: RoleAssistant, Content: answer},
	)
}

// Messages returns a copy of the recorded messages.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}

// Len returns the number of recorded messages (two per turn).
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

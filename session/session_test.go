package session

import "testing"

func TestHistoryAddTurn(t *testing.T) {
	h := NewHistory()
	if h.Len() != 0 {
		t.Fatalf("expected empty history, got %d", h.Len())
	}

	h.AddTurn("Add apples", "Added apples.")
	h.AddTurn("What's on my list?", "Apples.")

	msgs := h.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	wantRoles := []string{RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	for i, m := range msgs {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: role %q, want %q", i, m.Role, wantRoles[i])
		}
	}
	if msgs[0].Content != "Add apples" || msgs[3].Content != "Apples." {
		t.Errorf("unexpected contents: %+v", msgs)
	}
}

func TestHistoryMessagesIsACopy(t *testing.T) {
	h := NewHistory()
	h.AddTurn("hi", "hello")

	msgs := h.Messages()
	msgs[0].Content = "changed"
	_ = append(msgs, Message{Role: RoleUser})

	if got := h.Messages()[0].Content; got != "hi" {
		t.Fatalf("history changed through returned slice: %q", got)
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", h.Len())
	}
}

func TestToolResult(t *testing.T) {
	call := ToolCall{ToolCallID: "call_1", Name: "retrieve_list", Args: map[string]any{"x": 1}}
	msg := ToolResult(call, "done")
	if msg.Role != RoleTool || msg.Content != "done" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].ToolCallID != "call_1" || msg.ToolCalls[0].Name != "retrieve_list" {
		t.Errorf("tool call reference not carried: %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Args != nil {
		t.Errorf("arguments should not be echoed into the result")
	}
}

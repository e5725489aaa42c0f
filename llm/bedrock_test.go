package llm

import (
	"encoding/json"
	"testing"

	"github.com/m4xw311/grocer/session"
)

func TestConvertMessagesToAnthropicFormat(t *testing.T) {
	// Test user message
	messages := []session.Message{
		{
			Role:    "user",
			Content: "Hello, world!",
		},
	}

	result, _ := convertMessagesToAnthropicFormat(messages)
	if len(result) != 1 {
		t.Errorf("Expected 1 message, got %d", len(result))
	}

	if result[0]["role"] != "user" {
		t.Errorf("Expected role 'user', got '%s'", result[0]["role"])
	}

	// System message becomes the system prompt, not a message
	messages = []session.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}
	result, system := convertMessagesToAnthropicFormat(messages)
	if system != "be brief" {
		t.Errorf("Expected system prompt 'be brief', got '%s'", system)
	}
	if len(result) != 1 {
		t.Errorf("Expected 1 message, got %d", len(result))
	}

	// Assistant tool calls followed by two results: results share one user message
	messages = []session.Message{
		{
			Role: "assistant",
			ToolCalls: []session.ToolCall{
				{ToolCallID: "call_1", Name: "add_to_list", Args: map[string]interface{}{"category": "fruits", "item": "apples"}},
				{ToolCallID: "call_2", Name: "retrieve_list"},
			},
		},
		session.ToolResult(session.ToolCall{ToolCallID: "call_1", Name: "add_to_list"}, "Started adding apples to fruits list..."),
		session.ToolResult(session.ToolCall{ToolCallID: "call_2", Name: "retrieve_list"}, `{"fruits":[]}`),
	}

	result, _ = convertMessagesToAnthropicFormat(messages)
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result))
	}
	if result[1]["role"] != "user" {
		t.Errorf("Expected role 'user', got '%s'", result[1]["role"])
	}
	results := result[1]["content"].([]map[string]interface{})
	if len(results) != 2 || results[1]["tool_use_id"] != "call_2" {
		t.Errorf("Expected both tool results in one message, got %v", results)
	}
	uses := result[0]["content"].([]map[string]interface{})
	if input, ok := uses[1]["input"].(map[string]interface{}); !ok || input == nil {
		t.Errorf("Expected empty object input for call without args, got %v", uses[1]["input"])
	}
}

func TestCreateAnthropicRequest(t *testing.T) {
	messages := []map[string]interface{}{
		{
			"role": "user",
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": "Hello!",
				},
			},
		},
	}

	// Test with no tools
	body, err := createAnthropicRequest(messages, "", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Request body is not JSON: %v", err)
	}
	if _, ok := decoded["tools"]; ok {
		t.Errorf("Expected no tools key without tools")
	}

	// Test with tools and system prompt
	body, err = createAnthropicRequest(messages, "be brief", groceryTools(t))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	decoded = nil
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Request body is not JSON: %v", err)
	}
	if decoded["system"] != "be brief" {
		t.Errorf("Expected system prompt, got %v", decoded["system"])
	}
	toolDefs := decoded["tools"].([]interface{})
	if len(toolDefs) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(toolDefs))
	}
	schema := toolDefs[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	props := schema["properties"].(map[string]interface{})
	if _, ok := props["category"]; !ok {
		t.Errorf("Expected category in add_to_list schema, got %v", props)
	}
}

func TestProcessBedrockResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "Let me add that."},
			{"type": "tool_use", "id": "toolu_1", "name": "add_to_list", "input": {"category": "fruits", "item": "apples"}},
			{"type": "tool_use", "name": "retrieve_list", "input": {}}
		]
	}`)

	msg, err := processBedrockResponse(body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Content != "Let me add that." {
		t.Errorf("Unexpected content %q", msg.Content)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ToolCallID != "toolu_1" || msg.ToolCalls[0].Args["item"] != "apples" {
		t.Errorf("Unexpected first call %+v", msg.ToolCalls[0])
	}
	if msg.ToolCalls[1].ToolCallID != "call_1_retrieve_list" {
		t.Errorf("Expected generated id, got %q", msg.ToolCalls[1].ToolCallID)
	}
}

func TestProcessBedrockResponseErrors(t *testing.T) {
	if _, err := processBedrockResponse([]byte(`{"error": "throttled"}`)); err == nil {
		t.Errorf("Expected API error to be surfaced")
	}
	if _, err := processBedrockResponse([]byte(`not json`)); err == nil {
		t.Errorf("Expected invalid JSON to be rejected")
	}
	msg, err := processBedrockResponse([]byte(`{"id": "x"}`))
	if err != nil || msg.Content != "" || len(msg.ToolCalls) != 0 {
		t.Errorf("Expected empty answer for content-less response, got %+v, %v", msg, err)
	}
}

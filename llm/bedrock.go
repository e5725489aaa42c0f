package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/session"
	"github.com/m4xw311/grocer/tools"
	"github.com/tidwall/gjson"
)

// BedrockLLMClient is a client for the Anthropic models on AWS Bedrock.
type BedrockLLMClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockLLMClient creates a new BedrockLLMClient.
// It requires AWS credentials to be configured in the environment.
func NewBedrockLLMClient(ctx context.Context, modelID string) (*BedrockLLMClient, error) {
	var opts []func(*config.LoadOptions) error
	if os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		opts = append(opts, config.WithRegion("us-east-1"))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}

	var clientOpts []func(*bedrockruntime.Options)
	// Custom endpoint, useful for testing against a local stub.
	if endpoint := os.Getenv("BEDROCK_ENDPOINT_URL"); endpoint != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return &BedrockLLMClient{
		client:  bedrockruntime.NewFromConfig(cfg, clientOpts...),
		modelID: modelID,
	}, nil
}

// Chat sends a chat request to the Anthropic model via AWS Bedrock.
func (b *BedrockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropicFormat(messages)

	requestBody, err := createAnthropicRequest(anthropicMessages, systemPrompt, availableTools)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Anthropic request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}

	return processBedrockResponse(resp.Body)
}

// convertMessagesToAnthropicFormat converts our internal message format to the
// raw Anthropic messages JSON that Bedrock expects.
func convertMessagesToAnthropicFormat(messages []session.Message) ([]map[string]interface{}, string) {
	var anthropicMessages []map[string]interface{}
	var systemPrompt string

	for i, msg := range messages {
		switch msg.Role {
		case session.RoleUser:
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": msg.Content,
					},
				},
			})
		case session.RoleAssistant:
			var content []map[string]interface{}
			if msg.Content != "" {
				content = append(content, map[string]interface{}{
					"type": "text",
					"text": msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Args
				if input == nil {
					input = map[string]interface{}{}
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ToolCallID,
					"name":  tc.Name,
					"input": input,
				})
			}
			if len(content) == 0 {
				continue
			}
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role":    "assistant",
				"content": content,
			})
		case session.RoleTool:
			if len(msg.ToolCalls) == 0 {
				continue
			}
			result := map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": msg.ToolCalls[0].ToolCallID,
				"content":     msg.Content,
			}
			// Results for the same assistant turn share one user message.
			if i > 0 && messages[i-1].Role == session.RoleTool && len(anthropicMessages) > 0 {
				last := anthropicMessages[len(anthropicMessages)-1]
				last["content"] = append(last["content"].([]map[string]interface{}), result)
				continue
			}
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role":    "user",
				"content": []map[string]interface{}{result},
			})
		case session.RoleSystem:
			systemPrompt = msg.Content
		}
	}

	return anthropicMessages, systemPrompt
}

// createAnthropicRequest creates the request body for Anthropic models on Bedrock.
func createAnthropicRequest(messages []map[string]interface{}, systemPrompt string, availableTools []tools.Tool) ([]byte, error) {
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        2048,
		"messages":          messages,
	}

	if systemPrompt != "" {
		request["system"] = systemPrompt
	}

	if len(availableTools) > 0 {
		var toolDefs []map[string]interface{}
		for _, tool := range availableTools {
			toolDefs = append(toolDefs, map[string]interface{}{
				"name":         tool.Name(),
				"description":  tool.Description(),
				"input_schema": tools.ParametersMap(tool.Schema()),
			})
		}
		request["tools"] = toolDefs
	}

	return json.Marshal(request)
}

// processBedrockResponse converts a Bedrock API response into our internal session.Message format.
func processBedrockResponse(body []byte) (*session.Message, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON in Bedrock response")
	}
	parsed := gjson.ParseBytes(body)

	if errMsg := parsed.Get("error"); errMsg.Exists() {
		return nil, errors.New("Bedrock API error: %s", errMsg.String())
	}

	out := &session.Message{Role: session.RoleAssistant}
	var decodeErr error
	parsed.Get("content").ForEach(func(_, item gjson.Result) bool {
		switch item.Get("type").String() {
		case "text":
			out.Content += item.Get("text").String()
		case "tool_use":
			name := item.Get("name").String()
			if name == "" {
				return true
			}
			args := map[string]interface{}{}
			if input := item.Get("input"); input.IsObject() {
				if err := json.Unmarshal([]byte(input.Raw), &args); err != nil {
					decodeErr = errors.Wrapf(err, "failed to decode tool input for '%s'", name)
					return false
				}
			}
			id := item.Get("id").String()
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", len(out.ToolCalls), name)
			}
			out.ToolCalls = append(out.ToolCalls, session.ToolCall{
				ToolCallID: id,
				Name:       name,
				Args:       args,
			})
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

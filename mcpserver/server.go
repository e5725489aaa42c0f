// Package mcpserver exposes the grocery list tools to MCP clients.
//
// Calls go through the same ToolRegistry the chat agent uses, so argument
// validation and the deferred add behave identically.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/tools"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "grocer"
	serverVersion = "v1.0.0"
)

// New creates an MCP server with one MCP tool per registered tool.
func New(registry *tools.ToolRegistry, logger *slog.Logger) (*mcp.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	for _, t := range registry.Tools() {
		schema, err := inputSchema(t)
		if err != nil {
			return nil, err
		}
		server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		}, handler(registry, t.Name(), logger))
	}
	return server, nil
}

// Serve runs the server on transport until the client disconnects or ctx is done.
func Serve(ctx context.Context, registry *tools.ToolRegistry, transport mcp.Transport, logger *slog.Logger) error {
	server, err := New(registry, logger)
	if err != nil {
		return err
	}
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return errors.Wrapf(err, "MCP server stopped")
	}
	return nil
}

// inputSchema converts the tool's schema to the SDK's schema type.
func inputSchema(t tools.Tool) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(tools.ParametersMap(t.Schema()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode schema for '%s'", t.Name())
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, errors.Wrapf(err, "failed to convert schema for '%s'", t.Name())
	}
	return &schema, nil
}

// handler dispatches one MCP call. Tool failures are reported as error results
// so the client's model can see them, like in the chat loop.
func handler(registry *tools.ToolRegistry, name string, logger *slog.Logger) mcp.ToolHandler {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[map[string]any]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		if args == nil {
			args = map[string]any{}
		}
		result, err := registry.Dispatch(ctx, name, args)
		if err != nil {
			logger.Info("mcp tool call failed", slog.String("tool", name), slog.Any("error", err))
			return &mcp.CallToolResultFor[any]{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
			}, nil
		}
		return &mcp.CallToolResultFor[any]{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

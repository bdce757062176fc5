// Package tools registers the engine's MCP tool surface.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/askdb-io/askdb-engine/pkg/services"
)

// mcpTenant scopes all MCP tool calls. The MCP transport carries no
// session layer, so tools operate on the shared default tenant.
const mcpTenant = "default"

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult converts a pipeline error into a tool error result with the
// credential-safe user message.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(services.UserMessage(err))
}

// arguments returns the call's argument map, nil when absent.
func arguments(req mcp.CallToolRequest) map[string]any {
	if m, ok := req.Params.Arguments.(map[string]any); ok {
		return m
	}
	return nil
}

// stringSlice extracts an optional []string argument.
func stringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := arguments(req)[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// optionalString extracts an optional string argument.
func optionalString(req mcp.CallToolRequest, key string) string {
	s, _ := arguments(req)[key].(string)
	return s
}

// Package executor implements the downstream tool adapters the router
// dispatches to: MCP tool servers, ACP peers, and the Bedrock and Vertex
// model runtimes.
package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// DefaultMCPServerURL is the tool server endpoint used when none is
// configured.
const DefaultMCPServerURL = "http://localhost:8081"

// mcpClientName identifies this process to MCP servers during initialize.
const mcpClientName = "switchboard"

// MCPAdapter executes actions against an MCP tool server over the
// Streamable HTTP transport. Each call runs on a fresh session; the router
// serializes calls per adapter, so sessions never overlap.
type MCPAdapter struct {
	endpoint   string
	httpClient *http.Client
	version    string
}

// MCPOption configures an MCPAdapter.
type MCPOption func(*MCPAdapter)

// WithMCPHTTPClient overrides the transport's HTTP client.
func WithMCPHTTPClient(client *http.Client) MCPOption {
	return func(a *MCPAdapter) { a.httpClient = client }
}

// NewMCPAdapter builds an adapter for the given MCP server endpoint,
// falling back to the default when endpoint is empty.
func NewMCPAdapter(endpoint string, opts ...MCPOption) *MCPAdapter {
	if endpoint == "" {
		endpoint = DefaultMCPServerURL
	}
	a := &MCPAdapter{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		version:    "0.3.0",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements outbound.ToolAdapter.
func (a *MCPAdapter) Name() string { return routing.AdapterMCP }

// Execute calls the tool named "<tool_name>_<tool_action>" with the request
// arguments plus the request id. MCP tool errors map to success=false; only
// transport and session failures surface as errors.
func (a *MCPAdapter) Execute(ctx context.Context, request *action.Request) (*routing.AdapterResult, error) {
	client := sdk.NewClient(&sdk.Implementation{Name: mcpClientName, Version: a.version}, nil)
	transport := &sdk.StreamableClientTransport{
		Endpoint:   a.endpoint,
		HTTPClient: a.httpClient,
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to MCP server: %w", err)
	}
	defer func() { _ = session.Close() }()

	args := make(map[string]any, len(request.Arguments.Data)+1)
	for k, v := range request.Arguments.Data {
		args[k] = v
	}
	args["request_id"] = request.Context.RequestID.String()

	result, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      mcpToolName(request),
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call tool: %w", err)
	}

	return &routing.AdapterResult{
		Success:  !result.IsError,
		Detail:   textContent(result),
		Response: structuredContent(result),
	}, nil
}

// mcpToolName joins tool name and action into the flat tool identifier the
// demo server registers.
func mcpToolName(request *action.Request) string {
	return request.ToolName + "_" + request.ToolAction
}

// textContent concatenates the text blocks of a tool result.
func textContent(result *sdk.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*sdk.TextContent); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// structuredContent returns the structured payload of a tool result when
// the server provided one as an object.
func structuredContent(result *sdk.CallToolResult) map[string]any {
	if result.StructuredContent == nil {
		return map[string]any{}
	}
	if m, ok := result.StructuredContent.(map[string]any); ok {
		return m
	}
	return map[string]any{"content": result.StructuredContent}
}

var _ outbound.ToolAdapter = (*MCPAdapter)(nil)

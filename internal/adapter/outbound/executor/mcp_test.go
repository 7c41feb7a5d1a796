package executor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jlov7/Switchboard/internal/domain/action"
)

// newToolServer spins up a Streamable HTTP MCP server with one echoing
// tool and one failing tool.
func newToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := sdk.NewServer(&sdk.Implementation{Name: "switchboard-tools", Version: "test"}, nil)

	sdk.AddTool(server, &sdk.Tool{Name: "jira_create_issue", Description: "File a tracking issue."},
		func(ctx context.Context, req *sdk.CallToolRequest, input map[string]any) (*sdk.CallToolResult, map[string]any, error) {
			return nil, map[string]any{
				"issue_key":  "JIRA-123",
				"request_id": input["request_id"],
			}, nil
		})

	sdk.AddTool(server, &sdk.Tool{Name: "jira_delete_project", Description: "Always refused."},
		func(ctx context.Context, req *sdk.CallToolRequest, input map[string]any) (*sdk.CallToolResult, map[string]any, error) {
			return nil, nil, errors.New("deletion is not permitted")
		})

	ts := httptest.NewServer(sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil))
	t.Cleanup(ts.Close)
	return ts
}

func TestMCPAdapter_CallsTool(t *testing.T) {
	t.Parallel()
	ts := newToolServer(t)
	adapter := NewMCPAdapter(ts.URL)

	req := execRequest(t, nil)
	result, err := adapter.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("unexpected failure %+v", result)
	}
	if result.Response["issue_key"] != "JIRA-123" {
		t.Fatalf("unexpected response %v", result.Response)
	}
	if result.Response["request_id"] != req.Context.RequestID.String() {
		t.Fatalf("request id not threaded through: %v", result.Response["request_id"])
	}
}

func TestMCPAdapter_ToolErrorMapsToFailure(t *testing.T) {
	t.Parallel()
	ts := newToolServer(t)
	adapter := NewMCPAdapter(ts.URL)

	req := execRequest(t, func(r *action.Request) {
		r.ToolAction = "delete_project"
	})
	result, err := adapter.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected tool error to map to success=false")
	}
	if !strings.Contains(result.Detail, "deletion is not permitted") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestMCPAdapter_UnreachableServer(t *testing.T) {
	t.Parallel()
	adapter := NewMCPAdapter("http://127.0.0.1:1")

	_, err := adapter.Execute(context.Background(), execRequest(t, nil))
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestMCPAdapter_DefaultEndpoint(t *testing.T) {
	t.Parallel()
	if NewMCPAdapter("").endpoint != DefaultMCPServerURL {
		t.Fatal("expected default endpoint")
	}
}

func TestMCPToolName(t *testing.T) {
	t.Parallel()
	req := execRequest(t, nil)
	if got := mcpToolName(req); got != "jira_create_issue" {
		t.Fatalf("unexpected tool name %q", got)
	}
}

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func startServer(t *testing.T) *sdk.ClientSession {
	t.Helper()

	server := newToolServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil))
	t.Cleanup(ts.Close)

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(context.Background(), &sdk.StreamableClientTransport{Endpoint: ts.URL}, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) *sdk.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return result
}

func structured(t *testing.T, result *sdk.CallToolResult) map[string]any {
	t.Helper()
	m, ok := result.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("expected structured object, got %T", result.StructuredContent)
	}
	return m
}

func TestJiraTools(t *testing.T) {
	session := startServer(t)

	created := callTool(t, session, "jira_create_issue", map[string]any{
		"project": "SW",
		"summary": "printer on fire",
	})
	if created.IsError {
		t.Fatalf("unexpected tool error: %+v", created)
	}
	if got := structured(t, created)["issue_key"]; got != "SW-123" {
		t.Errorf("expected default issue key, got %v", got)
	}

	updated := callTool(t, session, "jira_update_issue", map[string]any{
		"issue_key": "SW-7",
		"summary":   "still on fire",
	})
	if got := structured(t, updated)["issue_key"]; got != "SW-7" {
		t.Errorf("expected caller issue key to echo, got %v", got)
	}
}

func TestGitHubTools(t *testing.T) {
	session := startServer(t)

	for _, name := range []string{"github_comment_issue", "github_create_pr"} {
		result := callTool(t, session, name, map[string]any{
			"repository": "acme/switchboard",
			"body":       "done",
		})
		if result.IsError {
			t.Fatalf("unexpected tool error from %s: %+v", name, result)
		}
		if got := structured(t, result)["status"]; got != "queued" {
			t.Errorf("%s: expected queued status, got %v", name, got)
		}
	}
}

func TestUnknownToolIsRejected(t *testing.T) {
	session := startServer(t)

	_, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "jira_delete_project",
		Arguments: map[string]any{},
	})
	if err == nil {
		t.Fatal("expected an error for an unregistered tool")
	}
}

func TestListTools(t *testing.T) {
	session := startServer(t)

	list, err := session.ListTools(context.Background(), &sdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("failed to list tools: %v", err)
	}
	want := map[string]bool{
		"jira_create_issue":    false,
		"jira_update_issue":    false,
		"github_comment_issue": false,
		"github_create_pr":     false,
	}
	for _, tool := range list.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %s not registered", name)
		}
	}
}

// Command switchboard-tools runs the demo MCP tool server the mcp adapter
// dispatches to. It exposes flat tool names (jira_create_issue,
// jira_update_issue, github_comment_issue, github_create_pr) over the
// Streamable HTTP transport; calls to unregistered tools are answered with
// tool-not-found errors by the protocol layer.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName      = "switchboard-tools"
	serverVersion   = "0.3.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	addr := flag.String("addr", envOr("MCP_TOOLS_ADDR", ":8081"), "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	server := newToolServer(logger)
	handler := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp tool server listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
		logger.Info("mcp tool server stopped")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newToolServer registers the demo Jira and GitHub tools.
func newToolServer(logger *slog.Logger) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: serverName, Version: serverVersion}, nil)

	sdk.AddTool(server, &sdk.Tool{Name: "jira_create_issue", Description: "File a Jira issue."},
		jiraHandler("create_issue", logger))
	sdk.AddTool(server, &sdk.Tool{Name: "jira_update_issue", Description: "Update an existing Jira issue."},
		jiraHandler("update_issue", logger))
	sdk.AddTool(server, &sdk.Tool{Name: "github_comment_issue", Description: "Comment on a GitHub issue."},
		githubHandler("comment_issue", logger))
	sdk.AddTool(server, &sdk.Tool{Name: "github_create_pr", Description: "Open a GitHub pull request."},
		githubHandler("create_pr", logger))

	return server
}

type toolFunc = func(ctx context.Context, req *sdk.CallToolRequest, input map[string]any) (*sdk.CallToolResult, map[string]any, error)

// jiraHandler answers with the issue key from the arguments, or the demo
// default when the caller named none.
func jiraHandler(action string, logger *slog.Logger) toolFunc {
	return func(ctx context.Context, req *sdk.CallToolRequest, input map[string]any) (*sdk.CallToolResult, map[string]any, error) {
		logger.Info("jira action",
			"action", action,
			"project", input["project"],
			"request_id", input["request_id"],
		)
		issueKey, ok := input["issue_key"].(string)
		if !ok || issueKey == "" {
			issueKey = "SW-123"
		}
		return nil, map[string]any{"issue_key": issueKey}, nil
	}
}

// githubHandler queues the requested change and says so.
func githubHandler(action string, logger *slog.Logger) toolFunc {
	return func(ctx context.Context, req *sdk.CallToolRequest, input map[string]any) (*sdk.CallToolResult, map[string]any, error) {
		logger.Info("github action",
			"action", action,
			"repository", input["repository"],
			"request_id", input["request_id"],
		)
		return nil, map[string]any{"status": "queued"}, nil
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

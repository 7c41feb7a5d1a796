// Package integration boots the full routing pipeline behind the HTTP API
// and exercises it through the public client: policy evaluation, signed
// audit persistence, approval holds and adapter dispatch working together.
package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jlov7/Switchboard/internal/adapter/inbound/api"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/auditlog"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/rekor"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/sqlstore"
	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/auth"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/service"
	"github.com/jlov7/Switchboard/pkg/switchboard"
)

// testLogger returns a logger that writes to stderr at error level (quiet tests).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// echoAdapter answers every dispatch with a fixed payload and counts calls.
type echoAdapter struct {
	name  string
	calls atomic.Int64
}

func (a *echoAdapter) Name() string { return a.name }

func (a *echoAdapter) Execute(_ context.Context, req *action.Request) (*routing.AdapterResult, error) {
	a.calls.Add(1)
	return &routing.AdapterResult{
		Success:  true,
		Detail:   "executed " + req.ToolName + "." + req.ToolAction,
		Response: map[string]any{"echo": req.ToolAction},
	}, nil
}

// stack is one fully wired switchboard instance: local ruleset, signed
// audit log anchored offline, SQLite approval store and an echo adapter
// behind the HTTP API.
type stack struct {
	client    *switchboard.Client
	adapter   *echoAdapter
	auditPath string
	baseURL   string
}

// newStack builds the stack. A non-empty reviewerKey locks the approval
// endpoints behind that key and configures the client to present it.
func newStack(t *testing.T, reviewerKey string) *stack {
	t.Helper()
	logger := testLogger()
	dir := t.TempDir()

	policies := service.NewPolicyService(policy.NewEngine(policy.DefaultConfig()), logger)

	auditPath := filepath.Join(dir, "audit-log.jsonl")
	store := auditlog.NewStore(auditPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close audit store: %v", err)
		}
	})

	transparency := rekor.NewClient("", store)
	audits := service.NewAuditService(audit.NewSigner("integration-secret"), store, transparency, logger)

	approvals := sqlstore.NewApprovalStore("sqlite://" + filepath.Join(dir, "approvals.db"))
	if err := approvals.Warmup(context.Background()); err != nil {
		t.Fatalf("approval store warmup: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := approvals.Shutdown(ctx); err != nil {
			t.Errorf("shutdown approval store: %v", err)
		}
	})

	adapter := &echoAdapter{name: routing.AdapterMCP}
	registry := service.NewAdapterRegistry()
	registry.Register(adapter)

	router := service.NewRouterService(policies, audits, approvals, registry, logger)

	keyring := auth.ParseKeyring("")
	if reviewerKey != "" {
		sum := sha256.Sum256([]byte(reviewerKey))
		keyring = auth.ParseKeyring(hex.EncodeToString(sum[:]))
	}

	server := api.NewServer(router, api.WithLogger(logger), api.WithReviewerKeyring(keyring))
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)

	opts := []switchboard.Option{
		switchboard.WithBaseURL(ts.URL),
		switchboard.WithLogger(logger),
	}
	if reviewerKey != "" {
		opts = append(opts, switchboard.WithReviewerKey(reviewerKey))
	}

	return &stack{
		client:    switchboard.NewClient(opts...),
		adapter:   adapter,
		auditPath: auditPath,
		baseURL:   ts.URL,
	}
}

// routineRequest is an allowed p1 request for the echo adapter.
func routineRequest() switchboard.ActionRequest {
	return switchboard.ActionRequest{
		Context: switchboard.ActionContext{
			AgentID:     "agent-1",
			PrincipalID: "user-1",
			TenantID:    "tenant-1",
			Severity:    "p1",
			Metadata:    map[string]any{"role": "ops"},
		},
		ToolName:   "jira",
		ToolAction: "create_issue",
		Arguments: switchboard.Arguments{
			Data: map[string]any{"summary": "restart the cache"},
		},
	}
}

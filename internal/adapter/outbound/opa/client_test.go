package opa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jlov7/Switchboard/internal/domain/action"
)

func evalRequest(t *testing.T) *action.Request {
	t.Helper()
	req := &action.Request{
		Context: action.Context{
			AgentID:     "agent",
			PrincipalID: "user",
			TenantID:    "tenant",
		},
		ToolName:   "jira",
		ToolAction: "create_issue",
		Arguments:  action.Arguments{Data: map[string]any{"foo": "bar"}},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("invalid test request: %v", err)
	}
	return req
}

func TestEvaluateMapsResult(t *testing.T) {
	t.Parallel()
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode input: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"allow":true,"requires_approval":true,"reason":"needs review","policy_ids":["policy:pii-approval"],"risk_level":"high"}}`))
	}))
	t.Cleanup(server.Close)

	decision, err := NewClient(server.URL).Evaluate(context.Background(), evalRequest(t))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allowed || !decision.RequiresApproval {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if decision.Reason != "needs review" || decision.RiskLevel != "high" {
		t.Fatalf("unexpected decision %+v", decision)
	}

	input, ok := captured["input"].(map[string]any)
	if !ok {
		t.Fatalf("expected input document, got %v", captured)
	}
	reqDoc, ok := input["request"].(map[string]any)
	if !ok || reqDoc["tool_name"] != "jira" {
		t.Fatalf("unexpected request document %v", input["request"])
	}
	if _, ok := input["activity"].(map[string]any); !ok {
		t.Fatalf("expected activity document, got %v", input["activity"])
	}
}

func TestEvaluateDefaultsMissingFields(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"allow":false}}`))
	}))
	t.Cleanup(server.Close)

	decision, err := NewClient(server.URL).Evaluate(context.Background(), evalRequest(t))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected deny")
	}
	if decision.Reason != "denied" {
		t.Fatalf("expected default deny reason, got %q", decision.Reason)
	}
	if decision.RiskLevel != "medium" {
		t.Fatalf("expected default risk, got %q", decision.RiskLevel)
	}
	if decision.PolicyIDs == nil || len(decision.PolicyIDs) != 0 {
		t.Fatalf("expected empty policy ids, got %v", decision.PolicyIDs)
	}
}

func TestEvaluateErrorStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bundle missing", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL).Evaluate(context.Background(), evalRequest(t))
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "OPA error 503") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestEvaluateMissingResult(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL).Evaluate(context.Background(), evalRequest(t))
	if !errors.Is(err, ErrMissingResult) {
		t.Fatalf("expected ErrMissingResult, got %v", err)
	}
}

func TestNewClientDefaultsURL(t *testing.T) {
	t.Parallel()
	if NewClient("").url != DefaultURL {
		t.Fatal("expected default url")
	}
}

package action

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func validContext() Context {
	return Context{
		AgentID:     "agent-1",
		PrincipalID: "user-1",
		TenantID:    "tenant-a",
		Severity:    SeverityP2,
	}
}

func TestContextValidateAssignsDefaults(t *testing.T) {
	ctx := Context{
		AgentID:     "  agent-1  ",
		PrincipalID: "user-1",
		TenantID:    "tenant-a",
	}

	if err := ctx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.AgentID != "agent-1" {
		t.Fatalf("expected trimmed agent id, got %q", ctx.AgentID)
	}
	if ctx.RequestID == uuid.Nil {
		t.Fatal("expected request id to be assigned")
	}
	if ctx.InitiatedAt.IsZero() {
		t.Fatal("expected initiated_at to be assigned")
	}
	if ctx.Severity != SeverityP1 {
		t.Fatalf("expected default severity p1, got %q", ctx.Severity)
	}
	if ctx.SensitivityTags == nil || ctx.Metadata == nil {
		t.Fatal("expected collections to be initialized")
	}
}

func TestContextValidatePreservesAssignedRequestID(t *testing.T) {
	id := uuid.New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := validContext()
	ctx.RequestID = id
	ctx.InitiatedAt = at

	if err := ctx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.RequestID != id {
		t.Fatalf("request id changed: %s != %s", ctx.RequestID, id)
	}
	if !ctx.InitiatedAt.Equal(at) {
		t.Fatalf("initiated_at changed: %s != %s", ctx.InitiatedAt, at)
	}
}

func TestContextValidateRejectsEmptyIdentifiers(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Context)
	}{
		{"agent", func(c *Context) { c.AgentID = "  " }},
		{"principal", func(c *Context) { c.PrincipalID = "" }},
		{"tenant", func(c *Context) { c.TenantID = "\t" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := validContext()
			tc.mutate(&ctx)
			if err := ctx.Validate(); err == nil {
				t.Fatalf("expected validation error for empty %s", tc.name)
			}
		})
	}
}

func TestContextValidateRejectsUnknownSeverity(t *testing.T) {
	ctx := validContext()
	ctx.Severity = Severity("p9")

	if err := ctx.Validate(); err == nil {
		t.Fatal("expected error for unknown severity")
	}
}

func TestContextRoles(t *testing.T) {
	ctx := validContext()
	ctx.Metadata = map[string]any{
		"role":  " Ops ",
		"roles": []any{"Admin", "  dev "},
	}

	roles := ctx.Roles()
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %v", roles)
	}
	if !ctx.HasRole("ops") || !ctx.HasRole("ADMIN") || !ctx.HasRole("dev") {
		t.Fatalf("expected roles to match case-insensitively, got %v", roles)
	}
	if ctx.HasRole("auditor") {
		t.Fatal("did not expect auditor role")
	}
}

func TestArgumentsRedacted(t *testing.T) {
	args := Arguments{
		Data: map[string]any{
			"token":   "secret-value",
			"project": "atlas",
		},
		RedactedFields: []string{"token", "missing"},
	}

	masked := args.Redacted()
	if masked["token"] != RedactedPlaceholder {
		t.Fatalf("expected token to be masked, got %v", masked["token"])
	}
	if masked["project"] != "atlas" {
		t.Fatalf("expected project untouched, got %v", masked["project"])
	}
	if _, ok := masked["missing"]; ok {
		t.Fatal("redacting an absent key must not add it")
	}
	if args.Data["token"] != "secret-value" {
		t.Fatal("original arguments must not be mutated")
	}
}

func TestRequestValidate(t *testing.T) {
	req := Request{
		Context:    validContext(),
		ToolName:   "  jira  ",
		ToolAction: "create_issue",
	}

	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ToolName != "jira" {
		t.Fatalf("expected trimmed tool name, got %q", req.ToolName)
	}
	if req.Arguments.Data == nil || req.Arguments.RedactedFields == nil {
		t.Fatal("expected argument collections to be initialized")
	}

	req.ToolName = ""
	if err := req.Validate(); err == nil {
		t.Fatal("expected error for empty tool name")
	}
}

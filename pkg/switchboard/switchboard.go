// Package switchboard provides a Go client for the Switchboard action
// router API.
//
// Switchboard is a policy enforcement point for AI agent tool calls. This
// client submits action requests for routing, resolves held approvals, and
// verifies signed audit records. It uses only the Go standard library.
//
// Quick start:
//
//	// Set SWITCHBOARD_API_URL, then:
//	client := switchboard.NewClient()
//
//	result, err := client.Route(ctx, switchboard.ActionRequest{
//	    Context: switchboard.ActionContext{
//	        AgentID:     "agent-1",
//	        PrincipalID: "user-1",
//	        TenantID:    "tenant-1",
//	    },
//	    ToolName:   "jira",
//	    ToolAction: "create_issue",
//	})
//	if err == nil && result.Outcome == switchboard.OutcomePendingApproval {
//	    fmt.Printf("held for review: %s\n", result.ApprovalID)
//	}
package switchboard

import (
	"encoding/json"
	"time"
)

// Outcome is the result of routing one action request.
type Outcome string

const (
	// OutcomeExecuted indicates the action was dispatched to its adapter.
	OutcomeExecuted Outcome = "executed"

	// OutcomePendingApproval indicates the action is held for human review.
	OutcomePendingApproval Outcome = "pending_approval"

	// OutcomeBlocked indicates the action was denied by policy.
	OutcomeBlocked Outcome = "blocked"
)

// Approval statuses accepted by Approve.
const (
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// ActionContext carries the identity and risk attributes of an action
// request. AgentID, PrincipalID and TenantID are required; the server
// assigns RequestID and defaults Severity to "p1" when omitted.
type ActionContext struct {
	// RequestID uniquely identifies the request. Server-assigned when empty.
	RequestID string `json:"request_id,omitempty"`

	// AgentID identifies the autonomous agent issuing the action.
	AgentID string `json:"agent_id"`

	// PrincipalID identifies the human or service the agent acts for.
	PrincipalID string `json:"principal_id"`

	// TenantID scopes the request to a tenant.
	TenantID string `json:"tenant_id"`

	// Severity is the declared blast radius: "p0", "p1" or "p2".
	Severity string `json:"severity,omitempty"`

	// SensitivityTags label data classes the action touches.
	SensitivityTags []string `json:"sensitivity_tags,omitempty"`

	// PII marks requests that handle personal data.
	PII bool `json:"pii,omitempty"`

	// ResourceScope names the environment the action targets (e.g. "prod").
	ResourceScope string `json:"resource_scope,omitempty"`

	// Metadata holds free-form caller attributes such as roles.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Arguments are the tool-call arguments plus the keys that must be masked
// in any rendered view.
type Arguments struct {
	// Data holds the raw argument values.
	Data map[string]any `json:"data,omitempty"`

	// RedactedFields lists keys whose values are replaced with "***" in
	// logs and audit views.
	RedactedFields []string `json:"redacted_fields,omitempty"`
}

// ActionRequest is one intent to invoke a named tool action.
type ActionRequest struct {
	// Context identifies who asks and how risky the action is.
	Context ActionContext `json:"context"`

	// ToolName is the logical tool, optionally carrying an adapter prefix
	// ("partner:", "bedrock:", "vertex:").
	ToolName string `json:"tool_name"`

	// ToolAction is the operation invoked on the tool.
	ToolAction string `json:"tool_action"`

	// Arguments are passed through to the adapter.
	Arguments Arguments `json:"arguments"`
}

// PolicyDecision is the policy engine's verdict on one request.
type PolicyDecision struct {
	// Allowed is false when at least one rule denied the request.
	Allowed bool `json:"allowed"`

	// RequiresApproval holds the request for a human decision.
	RequiresApproval bool `json:"requires_approval"`

	// Reason explains the decision.
	Reason string `json:"reason"`

	// PolicyIDs lists every rule that matched.
	PolicyIDs []string `json:"policy_ids"`

	// RiskLevel is the highest risk any matched rule assigned.
	RiskLevel string `json:"risk_level"`

	// ExpiresAt bounds how long the decision may be cached, when set.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RouteResult is the sum outcome of POST /route: executed (200), held for
// approval (202) or blocked (403).
type RouteResult struct {
	// Outcome discriminates the result.
	Outcome Outcome `json:"result"`

	// Detail is a short human-readable summary; the policy reason for held
	// requests.
	Detail string `json:"detail,omitempty"`

	// Adapter is the adapter that executed or would execute the action.
	Adapter string `json:"adapter"`

	// Policy is the decision the request was routed under.
	Policy PolicyDecision `json:"policy"`

	// Response carries the downstream payload for executed requests.
	Response map[string]any `json:"response,omitempty"`

	// ApprovalID identifies the held request for OutcomePendingApproval.
	ApprovalID string `json:"approval_id,omitempty"`

	// ApprovalRequired is true for OutcomePendingApproval.
	ApprovalRequired bool `json:"approval_required,omitempty"`

	// StatusCode is the HTTP status the server answered with.
	StatusCode int `json:"-"`
}

// ApprovalDecision is a reviewer's verdict on a held request.
type ApprovalDecision struct {
	// ApprovalID identifies the held request.
	ApprovalID string `json:"approval_id"`

	// Status is "approved" or "denied".
	Status string `json:"status"`

	// DecidedBy names the reviewer.
	DecidedBy string `json:"decided_by"`

	// Notes carries the reviewer's free-form rationale.
	Notes *string `json:"notes,omitempty"`
}

// ApprovalResult is the outcome of resolving a held request. Approved
// requests are executed and carry the adapter detail; denied ones carry
// only the approval id.
type ApprovalResult struct {
	Result     string `json:"result"`
	Detail     string `json:"detail,omitempty"`
	Adapter    string `json:"adapter,omitempty"`
	ApprovalID string `json:"approval_id"`
}

// AuditEnvelope is the signed audit record attached to a pending approval.
// Record holds the full record JSON, suitable for VerifyAudit.
type AuditEnvelope struct {
	EventID            string          `json:"event_id"`
	Record             json.RawMessage `json:"record"`
	Signature          *string         `json:"signature"`
	SignatureAlgorithm *string         `json:"signature_algorithm"`
	VerificationURL    *string         `json:"verification_url"`
}

// PendingApproval is one request awaiting human review.
type PendingApproval struct {
	ApprovalID string         `json:"approval_id"`
	Request    ActionRequest  `json:"request"`
	Policy     PolicyDecision `json:"policy"`
	Adapter    string         `json:"adapter"`
	Audit      AuditEnvelope  `json:"audit"`
}

// VerifyResult is the outcome of checking an audit record's signature and,
// optionally, its transparency-log inclusion.
type VerifyResult struct {
	Verified       bool    `json:"verified"`
	SignatureValid bool    `json:"signature_valid"`
	RekorIncluded  *bool   `json:"rekor_included"`
	FailureReason  *string `json:"failure_reason"`
}

// Health is the liveness report of the API.
type Health struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

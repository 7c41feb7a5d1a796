// Package routing models adapter selection and the outcome of dispatching
// one action request.
package routing

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/policy"
)

// Adapter keys the router dispatches to.
const (
	AdapterMCP     = "mcp"
	AdapterACP     = "acp"
	AdapterBedrock = "bedrock"
	AdapterVertex  = "vertex"
)

// SelectAdapter maps a tool name onto the adapter key that executes it.
// Tools are MCP-served unless the name carries a partner, bedrock or
// vertex prefix.
func SelectAdapter(toolName string) string {
	switch {
	case strings.HasPrefix(toolName, "partner:"):
		return AdapterACP
	case strings.HasPrefix(toolName, "bedrock:"):
		return AdapterBedrock
	case strings.HasPrefix(toolName, "vertex:"):
		return AdapterVertex
	default:
		return AdapterMCP
	}
}

// Decision ties a policy decision to the adapter chosen for one request.
type Decision struct {
	// Context identifies the evaluated request.
	Context action.Context `json:"context"`
	// Policy is the decision the engine produced.
	Policy policy.Decision `json:"policy"`
	// TargetAdapter names the adapter that would execute the action.
	TargetAdapter string `json:"target_adapter"`
	// AuditEventID references the signed audit record.
	AuditEventID uuid.UUID `json:"audit_event_id"`
}

// AdapterResult is what a tool adapter reports back after execution.
// Downstream business failures surface here as Success=false, never as
// transport errors.
type AdapterResult struct {
	// Success is false when the downstream system reported a failure.
	Success bool `json:"success"`
	// Detail is a short human-readable summary.
	Detail string `json:"detail"`
	// Response carries the downstream payload, if any.
	Response map[string]any `json:"response,omitempty"`
}

// OutcomeKind discriminates the ways a routed request can end.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeExecuted OutcomeKind = iota
	OutcomePending
	OutcomeBlocked
)

// Outcome is the result of routing one request. Decision is always set;
// Result is set only for executed requests and ApprovalID only for held
// ones.
type Outcome struct {
	Kind       OutcomeKind
	Decision   Decision
	Result     *AdapterResult
	ApprovalID uuid.UUID
}

// Executed wraps a dispatched request and the adapter result.
func Executed(decision Decision, result *AdapterResult) Outcome {
	return Outcome{Kind: OutcomeExecuted, Decision: decision, Result: result}
}

// Pending wraps a request held for human approval.
func Pending(decision Decision, approvalID uuid.UUID) Outcome {
	return Outcome{Kind: OutcomePending, Decision: decision, ApprovalID: approvalID}
}

// Blocked wraps a request denied by policy.
func Blocked(decision Decision) Outcome {
	return Outcome{Kind: OutcomeBlocked, Decision: decision}
}

// Resolution is the outcome of resolving a held request. Result is set
// only when the request was approved and re-dispatched.
type Resolution struct {
	ApprovalID uuid.UUID
	Approved   bool
	Adapter    string
	Result     *AdapterResult
}

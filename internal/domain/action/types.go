// Package action contains the request model routed through the switchboard.
package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity classifies how disruptive an action can be.
type Severity string

// Severity levels, most severe first.
const (
	SeverityP0 Severity = "p0"
	SeverityP1 Severity = "p1"
	SeverityP2 Severity = "p2"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityP0, SeverityP1, SeverityP2:
		return true
	}
	return false
}

// RedactedPlaceholder replaces argument values whose keys are marked redacted.
const RedactedPlaceholder = "***"

// Context carries the identity and risk attributes of an action request.
// Identifier fields are trimmed and must be non-empty; RequestID never
// changes once assigned.
type Context struct {
	// RequestID uniquely identifies the request. Assigned on validation
	// when zero.
	RequestID uuid.UUID `json:"request_id"`
	// InitiatedAt is when the caller created the request (UTC).
	InitiatedAt time.Time `json:"initiated_at"`
	// AgentID identifies the autonomous agent issuing the action.
	AgentID string `json:"agent_id"`
	// PrincipalID identifies the human or service the agent acts for.
	PrincipalID string `json:"principal_id"`
	// TenantID scopes the request to a tenant.
	TenantID string `json:"tenant_id"`
	// Severity is the declared blast radius (p0 > p1 > p2).
	Severity Severity `json:"severity"`
	// SensitivityTags label data classes the action touches.
	SensitivityTags []string `json:"sensitivity_tags"`
	// PII marks requests that handle personal data.
	PII bool `json:"pii"`
	// ResourceScope names the environment the action targets (e.g. "prod").
	ResourceScope string `json:"resource_scope,omitempty"`
	// Metadata holds free-form caller attributes (roles, approver, ...).
	Metadata map[string]any `json:"metadata"`
}

// Validate normalizes the context in place and reports the first violation.
// Identifiers are trimmed, a zero RequestID and InitiatedAt are assigned,
// severity defaults to p1, and nil collections become empty.
func (c *Context) Validate() error {
	c.AgentID = strings.TrimSpace(c.AgentID)
	c.PrincipalID = strings.TrimSpace(c.PrincipalID)
	c.TenantID = strings.TrimSpace(c.TenantID)
	if c.AgentID == "" {
		return fmt.Errorf("agent_id cannot be empty")
	}
	if c.PrincipalID == "" {
		return fmt.Errorf("principal_id cannot be empty")
	}
	if c.TenantID == "" {
		return fmt.Errorf("tenant_id cannot be empty")
	}
	if c.RequestID == uuid.Nil {
		c.RequestID = uuid.New()
	}
	if c.InitiatedAt.IsZero() {
		c.InitiatedAt = time.Now().UTC()
	}
	if c.Severity == "" {
		c.Severity = SeverityP1
	}
	if !c.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", c.Severity)
	}
	if c.SensitivityTags == nil {
		c.SensitivityTags = []string{}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return nil
}

// Roles extracts the caller roles from metadata. Both the single-valued
// "role" key and the list-valued "roles" key are honored; values are
// trimmed and lowercased.
func (c *Context) Roles() []string {
	var roles []string
	if v, ok := c.Metadata["role"].(string); ok {
		if r := strings.ToLower(strings.TrimSpace(v)); r != "" {
			roles = append(roles, r)
		}
	}
	switch list := c.Metadata["roles"].(type) {
	case []any:
		for _, item := range list {
			if v, ok := item.(string); ok {
				if r := strings.ToLower(strings.TrimSpace(v)); r != "" {
					roles = append(roles, r)
				}
			}
		}
	case []string:
		for _, v := range list {
			if r := strings.ToLower(strings.TrimSpace(v)); r != "" {
				roles = append(roles, r)
			}
		}
	}
	return roles
}

// HasRole reports whether the caller carries the given role
// (case-insensitive).
func (c *Context) HasRole(role string) bool {
	want := strings.ToLower(strings.TrimSpace(role))
	for _, r := range c.Roles() {
		if r == want {
			return true
		}
	}
	return false
}

// Arguments are the tool-call arguments plus the keys that must never be
// logged or displayed in clear text.
type Arguments struct {
	// Data holds the raw argument values.
	Data map[string]any `json:"data"`
	// RedactedFields lists keys whose values are masked in any rendered
	// view. Keys absent from Data are permitted and ignored.
	RedactedFields []string `json:"redacted_fields"`
}

// Redacted returns a copy of Data with redacted keys replaced by "***".
// The stored map is never mutated.
func (a Arguments) Redacted() map[string]any {
	masked := make(map[string]any, len(a.Data))
	for k, v := range a.Data {
		if a.isRedacted(k) {
			masked[k] = RedactedPlaceholder
		} else {
			masked[k] = v
		}
	}
	return masked
}

func (a Arguments) isRedacted(key string) bool {
	for _, f := range a.RedactedFields {
		if f == key {
			return true
		}
	}
	return false
}

// Request is one inbound intent to invoke a named tool action.
type Request struct {
	// Context identifies who asks and how risky the action is.
	Context Context `json:"context"`
	// ToolName is the logical tool, optionally carrying an adapter prefix
	// ("partner:", "bedrock:", "vertex:").
	ToolName string `json:"tool_name"`
	// ToolAction is the operation invoked on the tool.
	ToolAction string `json:"tool_action"`
	// Arguments are passed through to the adapter.
	Arguments Arguments `json:"arguments"`
}

// Validate normalizes the request in place and reports the first violation.
func (r *Request) Validate() error {
	if err := r.Context.Validate(); err != nil {
		return err
	}
	r.ToolName = strings.TrimSpace(r.ToolName)
	r.ToolAction = strings.TrimSpace(r.ToolAction)
	if r.ToolName == "" {
		return fmt.Errorf("tool_name cannot be empty")
	}
	if r.ToolAction == "" {
		return fmt.Errorf("tool_action cannot be empty")
	}
	if r.Arguments.Data == nil {
		r.Arguments.Data = map[string]any{}
	}
	if r.Arguments.RedactedFields == nil {
		r.Arguments.RedactedFields = []string{}
	}
	return nil
}

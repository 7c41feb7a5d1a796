package executor

import (
	"testing"

	"github.com/jlov7/Switchboard/internal/domain/action"
)

// execRequest builds a validated request the adapter tests dispatch.
func execRequest(t *testing.T, mutate func(*action.Request)) *action.Request {
	t.Helper()
	req := &action.Request{
		Context: action.Context{
			AgentID:     "agent-1",
			PrincipalID: "user-1",
			TenantID:    "tenant-1",
			Metadata:    map[string]any{"channel": "test"},
		},
		ToolName:   "jira",
		ToolAction: "create_issue",
		Arguments: action.Arguments{
			Data: map[string]any{"summary": "printer on fire"},
		},
	}
	if mutate != nil {
		mutate(req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("invalid test request: %v", err)
	}
	return req
}

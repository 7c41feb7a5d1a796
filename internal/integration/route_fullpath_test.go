package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/jlov7/Switchboard/internal/adapter/outbound/rekor"
	"github.com/jlov7/Switchboard/pkg/switchboard"
)

// readAuditEntries decodes every line of the on-disk audit log.
func readAuditEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode audit entry: %v", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan audit log: %v", err)
	}
	return entries
}

func TestRouteFullPath_Executed(t *testing.T) {
	stack := newStack(t, "")

	result, err := stack.client.Route(context.Background(), routineRequest())
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Outcome != switchboard.OutcomeExecuted {
		t.Fatalf("expected executed, got %q (%s)", result.Outcome, result.Detail)
	}
	if result.Adapter != "mcp" {
		t.Fatalf("unexpected adapter %q", result.Adapter)
	}
	if result.Response["echo"] != "create_issue" {
		t.Fatalf("adapter payload lost: %v", result.Response)
	}
	if stack.adapter.calls.Load() != 1 {
		t.Fatalf("expected 1 dispatch, got %d", stack.adapter.calls.Load())
	}
}

func TestRouteFullPath_BlockedByPolicy(t *testing.T) {
	stack := newStack(t, "")

	req := routineRequest()
	req.Context.ResourceScope = "prod"
	req.Context.Metadata = map[string]any{"role": "dev"}

	result, err := stack.client.Route(context.Background(), req)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Outcome != switchboard.OutcomeBlocked {
		t.Fatalf("expected blocked, got %q", result.Outcome)
	}
	if result.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", result.StatusCode)
	}
	if result.Policy.Allowed {
		t.Fatal("blocked result must carry the denial")
	}
	if !strings.Contains(result.Policy.Reason, "role=ops required for prod scope") {
		t.Fatalf("unexpected reason %q", result.Policy.Reason)
	}
	if stack.adapter.calls.Load() != 0 {
		t.Fatal("blocked request must never reach the adapter")
	}
}

// Every routed request, including denials, lands in the signed on-disk log
// with an offline transparency reference, and the served record verifies.
func TestRouteFullPath_AuditTrail(t *testing.T) {
	stack := newStack(t, "")
	ctx := context.Background()

	if _, err := stack.client.Route(ctx, routineRequest()); err != nil {
		t.Fatalf("route allowed: %v", err)
	}
	blocked := routineRequest()
	blocked.Context.ResourceScope = "prod"
	blocked.Context.Metadata = map[string]any{"role": "dev"}
	if _, err := stack.client.Route(ctx, blocked); err != nil {
		t.Fatalf("route blocked: %v", err)
	}

	entries := readAuditEntries(t, stack.auditPath)
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	for i, entry := range entries {
		for _, key := range []string{"signature", "algorithm", "record", "verification_reference"} {
			if _, ok := entry[key]; !ok {
				t.Fatalf("entry %d missing %q", i, key)
			}
		}
		ref, _ := entry["verification_reference"].(string)
		if !strings.HasPrefix(ref, rekor.OfflinePrefix) {
			t.Fatalf("entry %d not anchored offline: %q", i, ref)
		}
	}

	// The served record for a held request verifies through the API.
	held := routineRequest()
	held.Context.PII = true
	result, err := stack.client.Route(ctx, held)
	if err != nil {
		t.Fatalf("route held: %v", err)
	}
	if result.Outcome != switchboard.OutcomePendingApproval {
		t.Fatalf("expected pending approval, got %q", result.Outcome)
	}

	pending, err := stack.client.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("pending approvals: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending approval, got %d", len(pending))
	}
	verdict, err := stack.client.VerifyAudit(ctx, pending[0].Audit.Record, false)
	if err != nil {
		t.Fatalf("verify audit: %v", err)
	}
	if !verdict.Verified || !verdict.SignatureValid {
		t.Fatalf("served record must verify, got %+v", verdict)
	}
}

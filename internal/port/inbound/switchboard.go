// Package inbound defines the port the HTTP transport calls into the
// switchboard core through.
package inbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/approval"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/domain/routing"
)

// Switchboard is the inbound port for routing actions and resolving
// approvals.
type Switchboard interface {
	// Route evaluates, audits and dispatches one request. The outcome is
	// executed, pending or blocked; errors are operational failures.
	Route(ctx context.Context, req *action.Request) (routing.Outcome, error)

	// ResolveApproval applies a reviewer decision to a held request and
	// re-dispatches it when approved.
	ResolveApproval(ctx context.Context, approvalID uuid.UUID, status audit.ApprovalStatus, decidedBy string, notes *string) (routing.Resolution, error)

	// CheckPolicy evaluates a request without auditing or dispatching.
	CheckPolicy(ctx context.Context, req *action.Request) (policy.Decision, error)

	// PendingApprovals lists requests awaiting review.
	PendingApprovals(ctx context.Context) (map[uuid.UUID]*approval.PendingEntry, error)

	// VerifyRecord checks a record's signature and transparency
	// inclusion.
	VerifyRecord(ctx context.Context, record *audit.Record, verifyRekor bool) audit.VerificationResult
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/approval"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/inbound"
)

// discardTimeout bounds the cleanup write when a caller abandons a request
// right after its pending entry was created.
const discardTimeout = 5 * time.Second

// RouterService orchestrates the pipeline for one action request: policy
// evaluation, audit recording, approval hold or adapter dispatch. Every
// request is audited before any outcome is produced.
type RouterService struct {
	policies  *PolicyService
	audits    *AuditService
	approvals approval.Store
	registry  *AdapterRegistry
	logger    *slog.Logger
	tracer    trace.Tracer
}

var _ inbound.Switchboard = (*RouterService)(nil)

// NewRouterService wires the router over its collaborators.
func NewRouterService(
	policies *PolicyService,
	audits *AuditService,
	approvals approval.Store,
	registry *AdapterRegistry,
	logger *slog.Logger,
) *RouterService {
	return &RouterService{
		policies:  policies,
		audits:    audits,
		approvals: approvals,
		registry:  registry,
		logger:    logger,
		tracer:    otel.Tracer("github.com/jlov7/Switchboard/internal/service"),
	}
}

// Route evaluates the request, records the audit event and either blocks,
// holds for approval, or dispatches to the target adapter. Errors are
// operational failures; policy denials and approval holds are outcomes.
func (s *RouterService) Route(ctx context.Context, request *action.Request) (routing.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "switchboard.route",
		trace.WithAttributes(
			attribute.String("switchboard.tool", request.ToolName),
			attribute.String("switchboard.action", request.ToolAction),
			attribute.String("switchboard.severity", string(request.Context.Severity)),
		),
	)
	defer span.End()

	decision := s.policies.Evaluate(ctx, request)

	record := audit.NewRecord(*request, decision)
	if err := s.audits.Record(ctx, record); err != nil {
		return routing.Outcome{}, fmt.Errorf("record audit event: %w", err)
	}

	route := routing.Decision{
		Context:       request.Context,
		Policy:        decision,
		TargetAdapter: routing.SelectAdapter(request.ToolName),
		AuditEventID:  record.EventID,
	}

	s.logger.Info("route decision",
		"request_id", request.Context.RequestID.String(),
		"adapter", route.TargetAdapter,
		"allowed", decision.Allowed,
		"requires_approval", decision.RequiresApproval,
		"policy_ids", decision.PolicyIDs,
		"args", request.Arguments.Redacted(),
	)

	span.SetAttributes(attribute.String("switchboard.adapter", route.TargetAdapter))

	if !decision.Allowed {
		span.SetAttributes(attribute.String("switchboard.outcome", "blocked"))
		return routing.Blocked(route), nil
	}

	if decision.RequiresApproval {
		approvalID, err := s.approvals.CreatePending(ctx, record, route)
		if err != nil {
			return routing.Outcome{}, fmt.Errorf("create pending approval: %w", err)
		}
		if ctx.Err() != nil {
			s.discardPending(approvalID)
			return routing.Outcome{}, ctx.Err()
		}
		span.SetAttributes(attribute.String("switchboard.outcome", "pending_approval"))
		return routing.Pending(route, approvalID), nil
	}

	result, err := s.dispatch(ctx, route.TargetAdapter, request)
	if err != nil {
		return routing.Outcome{}, err
	}
	span.SetAttributes(attribute.String("switchboard.outcome", "executed"))
	return routing.Executed(route, result), nil
}

// ResolveApproval applies a reviewer decision to a held request. Approved
// requests are re-dispatched to their original adapter; denied ones return
// without executing.
func (s *RouterService) ResolveApproval(ctx context.Context, approvalID uuid.UUID, status audit.ApprovalStatus, decidedBy string, notes *string) (routing.Resolution, error) {
	entry, err := s.approvals.Resolve(ctx, approvalID, status, decidedBy, notes)
	if err != nil {
		return routing.Resolution{}, err
	}

	resolution := routing.Resolution{
		ApprovalID: approvalID,
		Approved:   status == audit.StatusApproved,
		Adapter:    entry.Route.TargetAdapter,
	}

	s.logger.Info("approval resolved",
		"approval_id", approvalID.String(),
		"status", string(status),
		"decided_by", decidedBy,
		"adapter", entry.Route.TargetAdapter,
	)

	if !resolution.Approved {
		return resolution, nil
	}

	result, err := s.dispatch(ctx, entry.Route.TargetAdapter, &entry.Record.Request)
	if err != nil {
		return routing.Resolution{}, err
	}
	resolution.Result = result
	return resolution, nil
}

// CheckPolicy evaluates a request without auditing or dispatching it.
func (s *RouterService) CheckPolicy(ctx context.Context, request *action.Request) (policy.Decision, error) {
	return s.policies.Evaluate(ctx, request), nil
}

// PendingApprovals lists every request awaiting review.
func (s *RouterService) PendingApprovals(ctx context.Context) (map[uuid.UUID]*approval.PendingEntry, error) {
	return s.approvals.PendingDetails(ctx)
}

// VerifyRecord checks a record's signature and transparency inclusion.
func (s *RouterService) VerifyRecord(ctx context.Context, record *audit.Record, verifyRekor bool) audit.VerificationResult {
	return s.audits.Verify(ctx, record, verifyRekor)
}

// dispatch executes the request on the named adapter. Execution failures
// degrade to a failed result so downstream outages never surface as router
// errors; a missing adapter registration does.
func (s *RouterService) dispatch(ctx context.Context, adapterName string, request *action.Request) (*routing.AdapterResult, error) {
	result, err := s.registry.Execute(ctx, adapterName, request)
	if err != nil {
		if errors.Is(err, ErrAdapterNotFound) {
			return nil, err
		}
		s.logger.Warn("adapter execution failed",
			"adapter", adapterName,
			"request_id", request.Context.RequestID.String(),
			"error", err,
		)
		return &routing.AdapterResult{
			Success:  false,
			Detail:   err.Error(),
			Response: map[string]any{},
		}, nil
	}
	return result, nil
}

// discardPending denies a pending entry on behalf of the system after the
// caller abandoned the request. Runs on a fresh context because the
// caller's is already cancelled.
func (s *RouterService) discardPending(approvalID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), discardTimeout)
	defer cancel()
	if _, err := s.approvals.Resolve(ctx, approvalID, audit.StatusDenied, "system", nil); err != nil {
		s.logger.Warn("failed to discard abandoned approval",
			"approval_id", approvalID.String(),
			"error", err,
		)
	}
}

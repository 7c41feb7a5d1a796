// Package service contains the application services: policy evaluation,
// audit recording and verification, and the action router.
package service

import (
	"context"
	"log/slog"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// Evaluation sources reported to decision observers.
const (
	PolicySourceRemote = "remote"
	PolicySourceLocal  = "local"
)

// PolicyService evaluates requests remote-first: when a remote evaluator is
// configured its decision wins, and any remote failure falls back to the
// local ruleset so the router keeps answering.
type PolicyService struct {
	engine  *policy.Engine
	remote  outbound.RemoteEvaluator
	observe func(source string, decision policy.Decision)
	logger  *slog.Logger
}

// PolicyOption configures a PolicyService.
type PolicyOption func(*PolicyService)

// WithRemoteEvaluator enables the remote policy service.
func WithRemoteEvaluator(remote outbound.RemoteEvaluator) PolicyOption {
	return func(s *PolicyService) { s.remote = remote }
}

// WithDecisionObserver registers a callback invoked after every evaluation
// with the source that produced the decision.
func WithDecisionObserver(observe func(source string, decision policy.Decision)) PolicyOption {
	return func(s *PolicyService) { s.observe = observe }
}

// NewPolicyService builds a policy service over the local engine.
func NewPolicyService(engine *policy.Engine, logger *slog.Logger, opts ...PolicyOption) *PolicyService {
	s := &PolicyService{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the policy decision for one request. Remote evaluation
// failures are logged and answered by the local ruleset; evaluation itself
// never fails.
func (s *PolicyService) Evaluate(ctx context.Context, request *action.Request) policy.Decision {
	if s.remote != nil {
		decision, err := s.remote.Evaluate(ctx, request)
		if err == nil {
			if s.observe != nil {
				s.observe(PolicySourceRemote, decision)
			}
			return decision
		}
		s.logger.Warn("remote policy evaluation failed, falling back to local ruleset",
			"request_id", request.Context.RequestID.String(),
			"error", err,
		)
	}
	decision := s.engine.Evaluate(request)
	if s.observe != nil {
		s.observe(PolicySourceLocal, decision)
	}
	return decision
}

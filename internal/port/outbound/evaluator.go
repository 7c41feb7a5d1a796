package outbound

import (
	"context"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/policy"
)

// RemoteEvaluator asks an external policy engine for a decision. Errors
// make the caller fall back to the local ruleset, never fail the request.
type RemoteEvaluator interface {
	Evaluate(ctx context.Context, req *action.Request) (policy.Decision, error)
}

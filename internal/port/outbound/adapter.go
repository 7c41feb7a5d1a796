// Package outbound defines the outbound port interfaces the switchboard
// core calls into: tool adapters, the transparency log, the remote policy
// evaluator and the local audit log.
package outbound

import (
	"context"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
)

// ToolAdapter executes a tool action against one external surface.
// Implementations report downstream business failures via
// AdapterResult.Success=false and reserve errors for transport faults.
type ToolAdapter interface {
	// Name returns the adapter key used for routing.
	Name() string

	// Execute performs the tool action and reports the downstream result.
	Execute(ctx context.Context, req *action.Request) (*routing.AdapterResult, error)
}

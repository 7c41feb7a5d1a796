// Package approval defines the pending-approval store contract shared by
// the memory and database backends.
package approval

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/routing"
)

// Store errors.
var (
	// ErrNotFound is returned for approval ids the store has never seen
	// or no longer tracks.
	ErrNotFound = errors.New("approval request not found")
	// ErrAlreadyResolved is returned when a terminal entry is resolved
	// again.
	ErrAlreadyResolved = errors.New("approval request already resolved")
	// ErrNotTerminal is returned when a resolve targets the pending
	// status.
	ErrNotTerminal = errors.New("approval status must be terminal")
)

// PendingEntry couples a signed audit record with the route decision it
// was held under.
type PendingEntry struct {
	Record *audit.Record
	Route  routing.Decision
}

// Store holds requests awaiting a human decision.
type Store interface {
	// CreatePending stores the entry and returns its approval id. A
	// record without an approval decision gains a fresh pending one.
	CreatePending(ctx context.Context, record *audit.Record, route routing.Decision) (uuid.UUID, error)

	// Resolve moves a pending entry to a terminal status and returns it
	// with the approval decision stamped. Unknown ids fail with
	// ErrNotFound, previously resolved ids with ErrAlreadyResolved, and
	// non-terminal target statuses with ErrNotTerminal.
	Resolve(ctx context.Context, approvalID uuid.UUID, status audit.ApprovalStatus, decidedBy string, notes *string) (*PendingEntry, error)

	// Get returns the audit record held for an approval id.
	Get(ctx context.Context, approvalID uuid.UUID) (*audit.Record, error)

	// PendingDetails lists every pending entry keyed by approval id.
	PendingDetails(ctx context.Context) (map[uuid.UUID]*PendingEntry, error)

	// Warmup prepares the backend before first use.
	Warmup(ctx context.Context) error

	// Shutdown releases backend resources.
	Shutdown(ctx context.Context) error
}

// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/approval"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/routing"
)

// MemoryApprovalStore keeps pending approvals in a mutex-guarded map.
// Resolved entries are dropped, so a second resolve for the same id fails
// with approval.ErrNotFound.
type MemoryApprovalStore struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*approval.PendingEntry
	now     func() time.Time
}

var _ approval.Store = (*MemoryApprovalStore)(nil)

// NewApprovalStore creates an empty in-memory approval store.
func NewApprovalStore() *MemoryApprovalStore {
	return &MemoryApprovalStore{
		pending: make(map[uuid.UUID]*approval.PendingEntry),
		now:     time.Now,
	}
}

// CreatePending stores the entry under the record's approval id, creating
// a pending decision when the record has none.
func (s *MemoryApprovalStore) CreatePending(_ context.Context, record *audit.Record, route routing.Decision) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Approval == nil {
		record.Approval = audit.NewApprovalDecision()
	}
	id := record.Approval.ApprovalID
	s.pending[id] = &approval.PendingEntry{Record: record, Route: route}
	return id, nil
}

// Resolve removes the pending entry and stamps the reviewer decision onto
// the record.
func (s *MemoryApprovalStore) Resolve(_ context.Context, approvalID uuid.UUID, status audit.ApprovalStatus, decidedBy string, notes *string) (*approval.PendingEntry, error) {
	if !status.Terminal() {
		return nil, approval.ErrNotTerminal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[approvalID]
	if !ok {
		return nil, approval.ErrNotFound
	}
	delete(s.pending, approvalID)

	decidedAt := s.now().UTC()
	entry.Record.Approval = &audit.ApprovalDecision{
		ApprovalID: approvalID,
		Status:     status,
		DecidedBy:  &decidedBy,
		DecidedAt:  &decidedAt,
		Notes:      notes,
	}
	return entry, nil
}

// Get returns the audit record held for an approval id.
func (s *MemoryApprovalStore) Get(_ context.Context, approvalID uuid.UUID) (*audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[approvalID]
	if !ok {
		return nil, approval.ErrNotFound
	}
	return entry.Record, nil
}

// PendingDetails returns a snapshot of every pending entry.
func (s *MemoryApprovalStore) PendingDetails(_ context.Context) (map[uuid.UUID]*approval.PendingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]*approval.PendingEntry, len(s.pending))
	for id, entry := range s.pending {
		snapshot[id] = entry
	}
	return snapshot, nil
}

// Warmup is a no-op for the memory backend.
func (s *MemoryApprovalStore) Warmup(context.Context) error { return nil }

// Shutdown is a no-op for the memory backend.
func (s *MemoryApprovalStore) Shutdown(context.Context) error { return nil }

// Package audit defines the signed record written for every routed action
// and the verification results computed over it.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/policy"
)

// ApprovalStatus is the lifecycle state of a human approval.
type ApprovalStatus string

// Approval states. Pending is the only non-terminal state.
const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusDenied   ApprovalStatus = "denied"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// Terminal reports whether s ends the approval lifecycle.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// ApprovalDecision captures who resolved a held request and how.
type ApprovalDecision struct {
	// ApprovalID identifies the pending entry across the store.
	ApprovalID uuid.UUID `json:"approval_id"`
	// Status is pending until a reviewer resolves the request.
	Status ApprovalStatus `json:"status"`
	// DecidedBy names the reviewer; nil while pending.
	DecidedBy *string `json:"decided_by"`
	// DecidedAt is when the reviewer resolved; nil while pending.
	DecidedAt *time.Time `json:"decided_at"`
	// Notes carries the reviewer's free-form rationale.
	Notes *string `json:"notes"`
}

// NewApprovalDecision returns a pending decision with a fresh id.
func NewApprovalDecision() *ApprovalDecision {
	return &ApprovalDecision{
		ApprovalID: uuid.New(),
		Status:     StatusPending,
	}
}

// Record is the canonical representation of one policy-evaluated request.
// Signature fields stay nil until the record passes through the audit
// service.
type Record struct {
	// EventID uniquely identifies the audit event.
	EventID uuid.UUID `json:"event_id"`
	// Timestamp is when the record was created (UTC).
	Timestamp time.Time `json:"timestamp"`
	// Request is the action exactly as evaluated.
	Request action.Request `json:"request"`
	// Policy is the decision the engine produced.
	Policy policy.Decision `json:"policy_decision"`
	// Approval is attached once the request is held for review.
	Approval *ApprovalDecision `json:"approval"`
	// Signature is the detached signature over the canonical payload.
	Signature *string `json:"signature"`
	// SignatureAlgorithm names the scheme that produced Signature.
	SignatureAlgorithm *string `json:"signature_algorithm"`
	// VerificationURL points at the transparency log entry, or "offline"
	// when the log was unreachable.
	VerificationURL *string `json:"verification_url"`
}

// NewRecord builds an unsigned record for a policy-evaluated request.
func NewRecord(req action.Request, decision policy.Decision) *Record {
	return &Record{
		EventID:   uuid.New(),
		Timestamp: time.Now().UTC(),
		Request:   req,
		Policy:    decision,
	}
}

// Signed reports whether the record carries signature metadata.
func (r *Record) Signed() bool {
	return r.Signature != nil && *r.Signature != "" &&
		r.SignatureAlgorithm != nil && *r.SignatureAlgorithm != ""
}

// VerificationResult is the outcome of checking a record's signature and,
// optionally, its transparency-log inclusion.
type VerificationResult struct {
	// SignatureValid is true when the detached signature matches the
	// canonical payload.
	SignatureValid bool `json:"signature_valid"`
	// RekorIncluded is nil when inclusion was not consulted, otherwise
	// the outcome of the transparency check.
	RekorIncluded *bool `json:"rekor_included"`
	// FailureReason explains the first check that failed.
	FailureReason *string `json:"failure_reason"`
}

// Verified reports whether every consulted check passed.
func (v VerificationResult) Verified() bool {
	if v.FailureReason != nil {
		return false
	}
	if !v.SignatureValid {
		return false
	}
	if v.RekorIncluded != nil && !*v.RekorIncluded {
		return false
	}
	return true
}

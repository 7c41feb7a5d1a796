package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// offlineReference marks records whose transparency submission failed.
const offlineReference = "offline"

// AuditService signs audit records, anchors them in the transparency log,
// and persists them as JSON lines. Verification replays the same canonical
// form.
type AuditService struct {
	signer  *audit.Signer
	store   outbound.AuditLog
	rekor   outbound.TransparencyLog
	observe func(anchored bool)
	logger  *slog.Logger
}

// AuditOption configures an AuditService.
type AuditOption func(*AuditService)

// WithRecordObserver registers a callback invoked after every persisted
// record, reporting whether the transparency submission succeeded.
func WithRecordObserver(observe func(anchored bool)) AuditOption {
	return func(s *AuditService) { s.observe = observe }
}

// NewAuditService builds an audit service over the given signer, local
// store and transparency log.
func NewAuditService(signer *audit.Signer, store outbound.AuditLog, rekor outbound.TransparencyLog, logger *slog.Logger, opts ...AuditOption) *AuditService {
	s := &AuditService{
		signer: signer,
		store:  store,
		rekor:  rekor,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// auditEntry is the persisted JSONL line. Record holds the canonical
// payload bytes so the stored form matches what was signed.
type auditEntry struct {
	Signature             string          `json:"signature"`
	Algorithm             string          `json:"algorithm"`
	Record                json.RawMessage `json:"record"`
	VerificationReference string          `json:"verification_reference,omitempty"`
}

// Record signs the record, submits it to the transparency log and appends
// it to the local store. The record gains its signature metadata and
// verification reference in place. Transparency failures downgrade the
// reference to "offline"; signing and persistence failures are returned.
func (s *AuditService) Record(ctx context.Context, record *audit.Record) error {
	canonical, err := audit.CanonicalPayload(record)
	if err != nil {
		return fmt.Errorf("%w: %v", audit.ErrSigning, err)
	}
	signature := s.signer.Sign(canonical)
	record.Signature = &signature.Signature
	record.SignatureAlgorithm = &signature.Algorithm

	entry := auditEntry{
		Signature: signature.Signature,
		Algorithm: signature.Algorithm,
		Record:    canonical,
	}

	reference, err := s.rekor.SubmitEntry(ctx, entry)
	if err != nil {
		s.logger.Warn("transparency log submission failed",
			"event_id", record.EventID.String(),
			"error", err,
		)
		reference = offlineReference
	}

	entry.VerificationReference = reference
	if err := s.store.Append(entry); err != nil {
		return fmt.Errorf("persist audit entry: %w", err)
	}
	record.VerificationURL = &reference
	if s.observe != nil {
		s.observe(reference != offlineReference)
	}
	return nil
}

// Verify checks the record's signature and, when requested and available,
// its transparency-log inclusion. Records without a remote reference skip
// the inclusion check.
func (s *AuditService) Verify(ctx context.Context, record *audit.Record, verifyRekor bool) audit.VerificationResult {
	if !record.Signed() {
		return audit.VerificationResult{
			SignatureValid: false,
			FailureReason:  strPtr("Audit record is missing signature metadata"),
		}
	}

	canonical, err := audit.CanonicalPayload(record)
	if err != nil || !s.signer.Verify(canonical, *record.Signature) {
		return audit.VerificationResult{
			SignatureValid: false,
			FailureReason:  strPtr("Signature verification failed"),
		}
	}

	result := audit.VerificationResult{SignatureValid: true}
	if !verifyRekor {
		return result
	}

	reference := ""
	if record.VerificationURL != nil {
		reference = *record.VerificationURL
	}
	if reference == "" || reference == offlineReference {
		return result
	}

	included, err := s.rekor.VerifyEntry(ctx, reference)
	if err != nil {
		result.RekorIncluded = boolPtr(false)
		result.FailureReason = strPtr(fmt.Sprintf("Rekor verification failed: %v", err))
		return result
	}
	result.RekorIncluded = &included
	if !included {
		result.FailureReason = strPtr("Rekor inclusion could not be confirmed")
	}
	return result
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

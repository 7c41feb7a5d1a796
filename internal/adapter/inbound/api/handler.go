package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/approval"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/inbound"
)

// serviceName identifies the API in health responses.
const serviceName = "switchboard-api"

// Handler serves the switchboard JSON endpoints over an inbound core.
type Handler struct {
	core    inbound.Switchboard
	metrics *Metrics
	logger  *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithHandlerMetrics sets the metrics sink shared with the server.
func WithHandlerMetrics(metrics *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = metrics }
}

// NewHandler creates a Handler over the given core.
func NewHandler(core inbound.Switchboard, opts ...HandlerOption) *Handler {
	h := &Handler{
		core:   core,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(nil)
	}
	return h
}

// --- request payloads ---

// routePayload is the body of POST /route and POST /policy/check.
type routePayload struct {
	Request action.Request `json:"request"`
}

// approvePayload is the body of POST /approve.
type approvePayload struct {
	ApprovalID string  `json:"approval_id"`
	Status     string  `json:"status"`
	DecidedBy  string  `json:"decided_by"`
	Notes      *string `json:"notes"`
}

// verifyPayload is the body of POST /audit/verify.
type verifyPayload struct {
	Record      *audit.Record `json:"record"`
	VerifyRekor bool          `json:"verify_rekor"`
}

// --- response shapes ---

type routeExecutedResponse struct {
	Result   string          `json:"result"`
	Detail   string          `json:"detail"`
	Adapter  string          `json:"adapter"`
	Policy   policy.Decision `json:"policy"`
	Response map[string]any  `json:"response"`
}

type routePendingResponse struct {
	Result           string          `json:"result"`
	ApprovalID       string          `json:"approval_id"`
	Detail           string          `json:"detail"`
	ApprovalRequired bool            `json:"approval_required"`
	Policy           policy.Decision `json:"policy"`
	Adapter          string          `json:"adapter"`
}

type routeBlockedResponse struct {
	Result  string          `json:"result"`
	Policy  policy.Decision `json:"policy"`
	Adapter string          `json:"adapter"`
}

type approveExecutedResponse struct {
	Result     string `json:"result"`
	Detail     string `json:"detail"`
	Adapter    string `json:"adapter"`
	ApprovalID string `json:"approval_id"`
}

type approveDeniedResponse struct {
	Result     string `json:"result"`
	ApprovalID string `json:"approval_id"`
}

type policyCheckResponse struct {
	Policy policy.Decision `json:"policy"`
}

type pendingAuditView struct {
	EventID            string        `json:"event_id"`
	Record             *audit.Record `json:"record"`
	Signature          *string       `json:"signature"`
	SignatureAlgorithm *string       `json:"signature_algorithm"`
	VerificationURL    *string       `json:"verification_url"`
}

type pendingApprovalView struct {
	ApprovalID string           `json:"approval_id"`
	Request    action.Request   `json:"request"`
	Policy     policy.Decision  `json:"policy"`
	Adapter    string           `json:"adapter"`
	Audit      pendingAuditView `json:"audit"`
}

type verifyResponse struct {
	Verified       bool    `json:"verified"`
	SignatureValid bool    `json:"signature_valid"`
	RekorIncluded  *bool   `json:"rekor_included"`
	FailureReason  *string `json:"failure_reason"`
}

type healthResponse struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// handleRoute evaluates, audits and dispatches one action request.
// POST /route
func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	var payload routePayload
	if err := readJSON(r, &payload); err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid JSON body")
		return
	}
	request := payload.Request
	if err := request.Validate(); err != nil {
		respondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.core.Route(r.Context(), &request)
	if err != nil {
		logger.Error("route failed", "error", err)
		respondError(w, logger, http.StatusInternalServerError, err.Error())
		return
	}

	switch outcome.Kind {
	case routing.OutcomeBlocked:
		respondJSON(w, logger, http.StatusForbidden, routeBlockedResponse{
			Result:  "blocked",
			Policy:  outcome.Decision.Policy,
			Adapter: outcome.Decision.TargetAdapter,
		})
	case routing.OutcomePending:
		h.metrics.PendingApprovals.Inc()
		respondJSON(w, logger, http.StatusAccepted, routePendingResponse{
			Result:           "pending_approval",
			ApprovalID:       outcome.ApprovalID.String(),
			Detail:           outcome.Decision.Policy.Reason,
			ApprovalRequired: true,
			Policy:           outcome.Decision.Policy,
			Adapter:          outcome.Decision.TargetAdapter,
		})
	default:
		h.metrics.observeAdapter(outcome.Decision.TargetAdapter, outcome.Result.Success)
		respondJSON(w, logger, http.StatusOK, routeExecutedResponse{
			Result:   "executed",
			Detail:   outcome.Result.Detail,
			Adapter:  outcome.Decision.TargetAdapter,
			Policy:   outcome.Decision.Policy,
			Response: outcome.Result.Response,
		})
	}
}

// handleApprove applies a reviewer decision to a held request.
// POST /approve
func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	var payload approvePayload
	if err := readJSON(r, &payload); err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status := audit.ApprovalStatus(payload.Status)
	if !status.Valid() {
		respondError(w, logger, http.StatusBadRequest, fmt.Sprintf("unknown approval status %q", payload.Status))
		return
	}
	if status == audit.StatusPending {
		respondError(w, logger, http.StatusBadRequest, "cannot transition to pending")
		return
	}
	approvalID, err := uuid.Parse(payload.ApprovalID)
	if err != nil {
		respondError(w, logger, http.StatusBadRequest, "approval_id must be a UUID")
		return
	}
	if strings.TrimSpace(payload.DecidedBy) == "" {
		respondError(w, logger, http.StatusBadRequest, "decided_by cannot be empty")
		return
	}

	resolution, err := h.core.ResolveApproval(r.Context(), approvalID, status, payload.DecidedBy, payload.Notes)
	switch {
	case errors.Is(err, approval.ErrNotFound):
		respondError(w, logger, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, approval.ErrAlreadyResolved):
		respondError(w, logger, http.StatusConflict, err.Error())
		return
	case err != nil:
		logger.Error("approval resolution failed", "approval_id", approvalID.String(), "error", err)
		respondError(w, logger, http.StatusInternalServerError, err.Error())
		return
	}

	h.metrics.PendingApprovals.Dec()
	if !resolution.Approved {
		respondJSON(w, logger, http.StatusOK, approveDeniedResponse{
			Result:     "denied",
			ApprovalID: approvalID.String(),
		})
		return
	}

	h.metrics.observeAdapter(resolution.Adapter, resolution.Result.Success)
	respondJSON(w, logger, http.StatusOK, approveExecutedResponse{
		Result:     "executed",
		Detail:     resolution.Result.Detail,
		Adapter:    resolution.Adapter,
		ApprovalID: approvalID.String(),
	})
}

// handlePolicyCheck evaluates a request without auditing or dispatching.
// POST /policy/check
func (h *Handler) handlePolicyCheck(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	var payload routePayload
	if err := readJSON(r, &payload); err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid JSON body")
		return
	}
	request := payload.Request
	if err := request.Validate(); err != nil {
		respondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.core.CheckPolicy(r.Context(), &request)
	if err != nil {
		logger.Error("policy check failed", "error", err)
		respondError(w, logger, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, logger, http.StatusOK, policyCheckResponse{Policy: decision})
}

// handlePendingApprovals lists every request awaiting review, oldest first.
// GET /approvals/pending
func (h *Handler) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	pending, err := h.core.PendingApprovals(r.Context())
	if err != nil {
		logger.Error("pending approvals lookup failed", "error", err)
		respondError(w, logger, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.PendingApprovals.Set(float64(len(pending)))

	views := make([]pendingApprovalView, 0, len(pending))
	for approvalID, entry := range pending {
		views = append(views, pendingApprovalView{
			ApprovalID: approvalID.String(),
			Request:    entry.Record.Request,
			Policy:     entry.Record.Policy,
			Adapter:    entry.Route.TargetAdapter,
			Audit: pendingAuditView{
				EventID:            entry.Record.EventID.String(),
				Record:             entry.Record,
				Signature:          entry.Record.Signature,
				SignatureAlgorithm: entry.Record.SignatureAlgorithm,
				VerificationURL:    entry.Record.VerificationURL,
			},
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].Audit.Record.Timestamp.Equal(views[j].Audit.Record.Timestamp) {
			return views[i].Audit.Record.Timestamp.Before(views[j].Audit.Record.Timestamp)
		}
		return views[i].ApprovalID < views[j].ApprovalID
	})

	respondJSON(w, logger, http.StatusOK, views)
}

// handleAuditVerify checks a record's signature and transparency inclusion.
// POST /audit/verify
func (h *Handler) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	var payload verifyPayload
	if err := readJSON(r, &payload); err != nil {
		respondError(w, logger, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Record == nil {
		respondError(w, logger, http.StatusBadRequest, "record is required")
		return
	}

	result := h.core.VerifyRecord(r.Context(), payload.Record, payload.VerifyRekor)
	respondJSON(w, logger, http.StatusOK, verifyResponse{
		Verified:       result.Verified(),
		SignatureValid: result.SignatureValid,
		RekorIncluded:  result.RekorIncluded,
		FailureReason:  result.FailureReason,
	})
}

// handleHealthz reports liveness.
// GET /healthz
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, LoggerFromContext(r.Context()), http.StatusOK, healthResponse{
		Service:   serviceName,
		Status:    "ok",
		CheckedAt: time.Now().UTC(),
	})
}

// --- JSON helpers ---

// readJSON decodes the request body into the given value.
func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// respondJSON writes a JSON response with the given status code and data.
func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes the API error shape with the given status code.
func respondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]string{"error": message})
}

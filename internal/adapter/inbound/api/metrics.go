package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jlov7/Switchboard/internal/domain/policy"
)

// Metrics holds the Prometheus instruments for the switchboard API.
// Handlers and middleware record into it directly; the policy and audit
// services feed it through the observer callbacks below.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	PolicyDecisions      *prometheus.CounterVec
	AuditRecordsTotal    prometheus.Counter
	TransparencyFailures prometheus.Counter
	AdapterExecutions    *prometheus.CounterVec
	PendingApprovals     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
// A nil registry creates unregistered instruments, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "switchboard",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "switchboard",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		PolicyDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "switchboard",
				Name:      "policy_decisions_total",
				Help:      "Policy decisions by evaluation source and outcome",
			},
			[]string{"source", "outcome"}, // source=remote/local, outcome=allow/approval/deny
		),
		AuditRecordsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "switchboard",
				Name:      "audit_records_total",
				Help:      "Signed audit records persisted to the local log",
			},
		),
		TransparencyFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "switchboard",
				Name:      "transparency_failures_total",
				Help:      "Audit records whose transparency submission failed",
			},
		),
		AdapterExecutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "switchboard",
				Name:      "adapter_executions_total",
				Help:      "Tool adapter executions by adapter and success",
			},
			[]string{"adapter", "success"},
		),
		PendingApprovals: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "switchboard",
				Name:      "pending_approvals",
				Help:      "Requests currently held for human review",
			},
		),
	}
}

// ObservePolicyDecision records one policy decision. Plug into
// service.WithDecisionObserver.
func (m *Metrics) ObservePolicyDecision(source string, decision policy.Decision) {
	m.PolicyDecisions.WithLabelValues(source, decisionOutcome(decision)).Inc()
}

// ObserveAuditRecord records one persisted audit record. Plug into
// service.WithRecordObserver.
func (m *Metrics) ObserveAuditRecord(anchored bool) {
	m.AuditRecordsTotal.Inc()
	if !anchored {
		m.TransparencyFailures.Inc()
	}
}

func (m *Metrics) observeAdapter(adapter string, success bool) {
	m.AdapterExecutions.WithLabelValues(adapter, strconv.FormatBool(success)).Inc()
}

func decisionOutcome(d policy.Decision) string {
	switch {
	case !d.Allowed:
		return "deny"
	case d.RequiresApproval:
		return "approval"
	default:
		return "allow"
	}
}

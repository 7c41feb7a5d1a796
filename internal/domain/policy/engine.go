package policy

import (
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jlov7/Switchboard/internal/domain/action"
)

const windowShardCount = 16

// Engine is the local ruleset evaluator. It keeps a sliding activity window
// per (tenant, tool, severity) tuple; windows live in shards so concurrent
// requests for unrelated keys do not contend on one lock.
type Engine struct {
	cfg    Config
	now    func() time.Time
	shards []windowShard
}

type windowShard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine time source. Tests use it to step through
// rate-limit windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds a local evaluator from cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	cfg.normalize()
	e := &Engine{
		cfg:    cfg,
		now:    time.Now,
		shards: make([]windowShard, windowShardCount),
	}
	for i := range e.shards {
		e.shards[i].windows = make(map[string][]time.Time)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the ruleset against one request in a single pass. Every
// matching rule contributes its id; a single denial wins over any approval
// requirement, and denied requests never consume rate-limit budget.
func (e *Engine) Evaluate(req *action.Request) Decision {
	ctx := req.Context

	allowed := true
	requiresApproval := false
	risk := RiskMedium
	var ids []string
	var denyReasons []string

	deny := func(id, reason string) {
		allowed = false
		ids = append(ids, id)
		denyReasons = append(denyReasons, reason)
	}

	if approver, ok := ctx.Metadata["approver"].(string); ok && approver != "" &&
		strings.EqualFold(strings.TrimSpace(approver), strings.TrimSpace(ctx.PrincipalID)) {
		deny(RuleSegregationOfDuties, "Segregation of duties: requester cannot approve")
	}

	if ctx.Severity == action.SeverityP0 && len(ctx.SensitivityTags) > 0 {
		deny(RuleP0SensitiveBlock, "p0 action with sensitive tags denied")
		risk = RiskCritical
	}

	if ctx.ResourceScope == "prod" && !ctx.HasRole("ops") {
		deny(RuleProdRole, "role=ops required for prod scope")
	}

	if ctx.Severity == action.SeverityP0 {
		requiresApproval = true
		ids = append(ids, RulePIIApproval)
		risk = MaxRisk(risk, RiskHigh)
	}

	if ctx.PII || e.cfg.RequiresApprovalTag(ctx.SensitivityTags) {
		requiresApproval = true
		ids = append(ids, RulePIIApproval)
		if ctx.Severity == action.SeverityP0 {
			risk = RiskCritical
		}
	}

	limit := e.cfg.LimitFor(string(ctx.Severity))
	key := windowKey(ctx.TenantID, req.ToolName, string(ctx.Severity))
	shard := e.shard(key)

	shard.mu.Lock()
	now := e.now()
	window := pruneWindow(shard.windows[key], now, limit.Window())
	if len(window) >= limit.MaxActions {
		deny(RuleRateLimit, "rate limit exceeded")
	}
	if allowed {
		window = append(window, now)
	}
	shard.windows[key] = window
	shard.mu.Unlock()

	if !allowed {
		requiresApproval = false
	}

	reason := "allowed"
	if len(denyReasons) > 0 {
		reason = strings.Join(dedup(denyReasons), "; ")
	}

	return Decision{
		Allowed:          allowed,
		RequiresApproval: requiresApproval,
		Reason:           reason,
		PolicyIDs:        dedup(ids),
		RiskLevel:        risk,
	}
}

func (e *Engine) shard(key string) *windowShard {
	return &e.shards[xxhash.Sum64String(key)%uint64(len(e.shards))]
}

// windowKey joins the tuple with zero bytes so distinct fields can never
// collide into one key.
func windowKey(tenant, tool, severity string) string {
	var b strings.Builder
	b.Grow(len(tenant) + len(tool) + len(severity) + 2)
	b.WriteString(tenant)
	b.WriteByte(0)
	b.WriteString(tool)
	b.WriteByte(0)
	b.WriteString(severity)
	return b.String()
}

func pruneWindow(window []time.Time, now time.Time, width time.Duration) []time.Time {
	cut := 0
	for cut < len(window) && now.Sub(window[cut]) > width {
		cut++
	}
	if cut == 0 {
		return window
	}
	return append([]time.Time(nil), window[cut:]...)
}

func dedup(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

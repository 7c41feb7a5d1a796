// Package policy defines policy decisions and the local ruleset that
// produces them when no remote policy engine is reachable.
package policy

import "time"

// Risk levels reported with a decision, lowest to highest.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Rule identifiers reported in Decision.PolicyIDs.
const (
	RuleSegregationOfDuties = "policy:segregation-of-duties"
	RuleP0SensitiveBlock    = "policy:p0-sensitive-block"
	RuleProdRole            = "policy:prod-role"
	RulePIIApproval         = "policy:pii-approval"
	RuleRateLimit           = "policy:rate-limit"
)

// Decision is the outcome of evaluating one action request.
type Decision struct {
	// Allowed is false when at least one rule denies the request.
	Allowed bool `json:"allowed"`
	// RequiresApproval holds the request for a human decision. It is
	// never true on a denied decision.
	RequiresApproval bool `json:"requires_approval"`
	// Reason explains the decision; deny reasons are joined with "; ".
	Reason string `json:"reason"`
	// PolicyIDs lists every rule that matched, in match order.
	PolicyIDs []string `json:"policy_ids"`
	// RiskLevel is the highest risk any matched rule assigned.
	RiskLevel string `json:"risk_level"`
	// ExpiresAt bounds how long the decision may be cached, when the
	// evaluator sets it.
	ExpiresAt *time.Time `json:"expires_at"`
}

// Allow returns a decision that permits the request outright.
func Allow(reason string) Decision {
	if reason == "" {
		reason = "allowed"
	}
	return Decision{
		Allowed:   true,
		Reason:    reason,
		PolicyIDs: []string{},
		RiskLevel: RiskMedium,
	}
}

var riskRank = map[string]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// MaxRisk returns the more severe of two risk levels. Unknown levels rank
// below low.
func MaxRisk(a, b string) string {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLimitKey applies to any severity without its own rate_limits entry.
const DefaultLimitKey = "default"

// RateLimit bounds how many actions one (tenant, tool, severity) tuple may
// perform inside a sliding window.
type RateLimit struct {
	// WindowSeconds is the width of the sliding window.
	WindowSeconds int `json:"window_seconds" yaml:"window_seconds"`
	// MaxActions is the number of allowed actions inside the window.
	MaxActions int `json:"limit" yaml:"limit"`
}

// Window returns the configured window width as a duration.
func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Sensitivity configures which tags force a human approval.
type Sensitivity struct {
	RequiresApprovalTags []string `json:"requires_approval_tags" yaml:"requires_approval_tags"`
}

// Config tunes the local ruleset. Its YAML form doubles as the data
// document seeded into the remote policy engine.
type Config struct {
	// RateLimits maps a severity ("p0", "p1", "p2" or "default") to its
	// sliding-window limit.
	RateLimits map[string]RateLimit `json:"rate_limits" yaml:"rate_limits"`
	// Sensitivity holds the approval-trigger tag set.
	Sensitivity Sensitivity `json:"sensitivity" yaml:"sensitivity"`
}

// DefaultConfig returns the limits applied when no config file is given.
func DefaultConfig() Config {
	return Config{
		RateLimits: map[string]RateLimit{
			DefaultLimitKey: {WindowSeconds: 60, MaxActions: 20},
			"p0":            {WindowSeconds: 60, MaxActions: 1},
			"p1":            {WindowSeconds: 60, MaxActions: 10},
			"p2":            {WindowSeconds: 60, MaxActions: 30},
		},
		Sensitivity: Sensitivity{
			RequiresApprovalTags: []string{"pii", "financial", "secret"},
		},
	}
}

// LoadConfig reads a ruleset config from a YAML file. Sections absent from
// the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read policy config: %w", err)
	}
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse policy config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// LimitFor returns the rate limit for a severity, falling back to the
// default entry.
func (c Config) LimitFor(severity string) RateLimit {
	if limit, ok := c.RateLimits[severity]; ok {
		return limit
	}
	if limit, ok := c.RateLimits[DefaultLimitKey]; ok {
		return limit
	}
	return RateLimit{WindowSeconds: 60, MaxActions: 20}
}

// RequiresApprovalTag reports whether any of the request tags is configured
// to force a human approval.
func (c Config) RequiresApprovalTag(tags []string) bool {
	for _, tag := range tags {
		for _, approval := range c.Sensitivity.RequiresApprovalTags {
			if tag == approval {
				return true
			}
		}
	}
	return false
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	if c.RateLimits == nil {
		c.RateLimits = defaults.RateLimits
	}
	if _, ok := c.RateLimits[DefaultLimitKey]; !ok {
		c.RateLimits[DefaultLimitKey] = defaults.RateLimits[DefaultLimitKey]
	}
	for key, limit := range c.RateLimits {
		if limit.WindowSeconds <= 0 {
			limit.WindowSeconds = defaults.LimitFor(key).WindowSeconds
		}
		if limit.MaxActions <= 0 {
			limit.MaxActions = defaults.LimitFor(key).MaxActions
		}
		c.RateLimits[key] = limit
	}
	if c.Sensitivity.RequiresApprovalTags == nil {
		c.Sensitivity.RequiresApprovalTags = defaults.Sensitivity.RequiresApprovalTags
	}
}

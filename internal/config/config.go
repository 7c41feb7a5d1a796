// Package config provides configuration types for Switchboard.
//
// Configuration is file-based (switchboard.yaml) with environment variable
// overrides. Every knob the service reads lives here; components receive
// plain values or sub-structs, never viper handles.
package config

import (
	"github.com/spf13/viper"
)

// Config is the top-level configuration for the Switchboard service.
type Config struct {
	// Server configures the HTTP API listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Policy configures policy evaluation (remote OPA + local fallback).
	Policy PolicyConfig `yaml:"policy" mapstructure:"policy"`

	// Approvals configures the pending-approval store backend.
	Approvals ApprovalsConfig `yaml:"approvals" mapstructure:"approvals"`

	// Audit configures record signing, the transparency log, and the
	// local audit file.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// Adapters configures the downstream tool adapters.
	Adapters AdaptersConfig `yaml:"adapters" mapstructure:"adapters"`

	// Telemetry configures the OpenTelemetry bootstrap.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Reviewer configures API-key auth for the approvals endpoints.
	Reviewer ReviewerConfig `yaml:"reviewer" mapstructure:"reviewer"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., ":8000", "127.0.0.1:8000").
	// Defaults to ":8000" if empty.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// PolicyConfig configures policy evaluation.
type PolicyConfig struct {
	// UseOPA enables the remote OPA evaluator. When OPA is unreachable
	// the local ruleset still decides, so leaving this on without an OPA
	// instance is safe. Defaults to true.
	UseOPA bool `yaml:"use_opa" mapstructure:"use_opa"`

	// OPAURL is the OPA data-API endpoint queried per request.
	// Defaults to "http://localhost:8181/v1/data/switchboard/authz".
	OPAURL string `yaml:"opa_url" mapstructure:"opa_url" validate:"omitempty,url"`

	// ConfigPath is the path to the local ruleset YAML (rate limits and
	// sensitivity tags). Empty means the compiled-in defaults.
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// ApprovalsConfig configures where pending approvals are held.
type ApprovalsConfig struct {
	// Backend selects the store: "memory" (process-local) or
	// "persistent" (SQLite/Postgres). Defaults to "memory".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory persistent"`

	// DatabaseURL is the persistent-store DSN. Prefixes: "sqlite://"
	// (path or :memory:), "postgres://"/"postgresql://".
	// Defaults to "sqlite://data/switchboard.db".
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"omitempty,approval_dsn"`
}

// AuditConfig configures audit record signing and persistence.
type AuditConfig struct {
	// SigningKey is the HMAC-SHA256 secret for audit signatures.
	// Defaults to "switchboard-dev-key" (override in production).
	SigningKey string `yaml:"signing_key" mapstructure:"signing_key"`

	// RekorURL is the transparency-log endpoint. Empty selects offline
	// mode: entries append to a local file next to the audit log.
	RekorURL string `yaml:"rekor_url" mapstructure:"rekor_url" validate:"omitempty,url"`

	// LogPath is the append-only JSONL audit file.
	// Defaults to "data/audit-log.jsonl".
	LogPath string `yaml:"log_path" mapstructure:"log_path"`

	// RotateMaxBytes caps the audit file size; an append that would grow
	// it past the cap rotates the file to a numbered sibling first.
	// Zero disables rotation.
	RotateMaxBytes int64 `yaml:"rotate_max_bytes" mapstructure:"rotate_max_bytes"`

	// RotateKeep is how many rotated siblings survive cleanup.
	// Defaults to 5.
	RotateKeep int `yaml:"rotate_keep" mapstructure:"rotate_keep"`
}

// AdaptersConfig configures the downstream tool adapters.
type AdaptersConfig struct {
	// MCPServerURL is the MCP tool server the mcp adapter connects to.
	// Defaults to "http://localhost:8081".
	MCPServerURL string `yaml:"mcp_server_url" mapstructure:"mcp_server_url" validate:"omitempty,url"`

	// ACPEndpoint is the partner-agent forwarder the acp adapter posts to.
	// Defaults to "http://localhost:8082".
	ACPEndpoint string `yaml:"acp_endpoint" mapstructure:"acp_endpoint" validate:"omitempty,url"`

	// EnableBedrock registers the bedrock adapter at boot.
	EnableBedrock bool `yaml:"enable_bedrock" mapstructure:"enable_bedrock"`

	// EnableVertex registers the vertex adapter at boot.
	EnableVertex bool `yaml:"enable_vertex" mapstructure:"enable_vertex"`

	// AWSMode selects "dry-run" (echo, no credentials needed) or "live"
	// (real Bedrock Converse calls) for the bedrock adapter.
	AWSMode string `yaml:"aws_mode" mapstructure:"aws_mode" validate:"omitempty,oneof=dry-run live"`

	// GCPMode selects "dry-run" or "live" for the vertex adapter.
	GCPMode string `yaml:"gcp_mode" mapstructure:"gcp_mode" validate:"omitempty,oneof=dry-run live"`

	// AWSRegion is the region for live Bedrock calls.
	AWSRegion string `yaml:"aws_region" mapstructure:"aws_region"`

	// BedrockModelID is the model used when a request names none.
	BedrockModelID string `yaml:"bedrock_model_id" mapstructure:"bedrock_model_id"`

	// GCPProject is the Google Cloud project for live Vertex calls.
	GCPProject string `yaml:"gcp_project" mapstructure:"gcp_project"`

	// GCPLocation is the Vertex region. Defaults to "us-central1".
	GCPLocation string `yaml:"gcp_location" mapstructure:"gcp_location"`

	// VertexModel is the model used when a request names none.
	VertexModel string `yaml:"vertex_model" mapstructure:"vertex_model"`
}

// TelemetryConfig configures the OpenTelemetry bootstrap.
type TelemetryConfig struct {
	// Enabled turns on the stdout trace/metric exporters.
	// Defaults to false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ReviewerConfig configures reviewer authentication.
type ReviewerConfig struct {
	// Keys is a comma-separated list of argon2id (or legacy sha256:hex)
	// hashes of reviewer API keys. Empty leaves the approvals endpoints
	// open.
	Keys string `yaml:"keys" mapstructure:"keys"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Server defaults.
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	// Policy defaults — remote OPA on by default (local fallback keeps
	// requests flowing when it is unreachable).
	// viper.IsSet distinguishes "not set" (zero value) from "explicitly false".
	if !viper.IsSet("policy.use_opa") {
		c.Policy.UseOPA = true
	}
	if c.Policy.OPAURL == "" {
		c.Policy.OPAURL = "http://localhost:8181/v1/data/switchboard/authz"
	}

	// Approval store defaults.
	if c.Approvals.Backend == "" {
		c.Approvals.Backend = "memory"
	}
	if c.Approvals.DatabaseURL == "" {
		c.Approvals.DatabaseURL = "sqlite://data/switchboard.db"
	}

	// Audit defaults.
	if c.Audit.SigningKey == "" {
		c.Audit.SigningKey = "switchboard-dev-key"
	}
	if c.Audit.LogPath == "" {
		c.Audit.LogPath = "data/audit-log.jsonl"
	}
	if c.Audit.RotateKeep == 0 {
		c.Audit.RotateKeep = 5
	}

	// Adapter defaults.
	if c.Adapters.MCPServerURL == "" {
		c.Adapters.MCPServerURL = "http://localhost:8081"
	}
	if c.Adapters.ACPEndpoint == "" {
		c.Adapters.ACPEndpoint = "http://localhost:8082"
	}
	if c.Adapters.AWSMode == "" {
		c.Adapters.AWSMode = "dry-run"
	}
	if c.Adapters.GCPMode == "" {
		c.Adapters.GCPMode = "dry-run"
	}
	if c.Adapters.GCPLocation == "" {
		c.Adapters.GCPLocation = "us-central1"
	}
}

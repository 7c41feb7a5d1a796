// Package config provides configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for switchboard.yaml/.yml
// in standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("switchboard")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: SWITCHBOARD_SERVER_ADDR etc.
	viper.SetEnvPrefix("SWITCHBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindEnvKeys()
}

// findConfigFile searches standard locations for a switchboard config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".switchboard"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "switchboard"))
		}
	} else {
		paths = append(paths, "/etc/switchboard")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for switchboard.yaml
// or .yml. Returns the full path of the first match, or empty string if
// none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "switchboard"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindEnvKeys binds config keys to their environment variables. Most keys
// follow the SWITCHBOARD_<KEY> convention; a handful keep the bare names
// the rest of the deployment already exports (OPA_URL, AUDIT_SIGNING_KEY,
// REKOR_URL, MCP_SERVER_URL, ACP_ENDPOINT, AWS/GCP credentials).
func bindEnvKeys() {
	// Server config
	_ = viper.BindEnv("server.addr", "SWITCHBOARD_SERVER_ADDR")
	_ = viper.BindEnv("server.log_level", "SWITCHBOARD_LOG_LEVEL")

	// Policy config
	_ = viper.BindEnv("policy.use_opa", "SWITCHBOARD_USE_OPA")
	_ = viper.BindEnv("policy.opa_url", "OPA_URL")
	_ = viper.BindEnv("policy.config_path", "SWITCHBOARD_POLICY_CONFIG")

	// Approval store config
	_ = viper.BindEnv("approvals.backend", "SWITCHBOARD_APPROVAL_BACKEND")
	_ = viper.BindEnv("approvals.database_url", "SWITCHBOARD_DATABASE_URL")

	// Audit config
	_ = viper.BindEnv("audit.signing_key", "AUDIT_SIGNING_KEY")
	_ = viper.BindEnv("audit.rekor_url", "REKOR_URL")
	_ = viper.BindEnv("audit.log_path", "SWITCHBOARD_AUDIT_LOG")
	_ = viper.BindEnv("audit.rotate_max_bytes", "SWITCHBOARD_AUDIT_ROTATE_MAX_BYTES")
	_ = viper.BindEnv("audit.rotate_keep", "SWITCHBOARD_AUDIT_ROTATE_KEEP")

	// Adapter config
	_ = viper.BindEnv("adapters.mcp_server_url", "MCP_SERVER_URL")
	_ = viper.BindEnv("adapters.acp_endpoint", "ACP_ENDPOINT")
	_ = viper.BindEnv("adapters.enable_bedrock", "SWITCHBOARD_ENABLE_BEDROCK")
	_ = viper.BindEnv("adapters.enable_vertex", "SWITCHBOARD_ENABLE_VERTEX")
	_ = viper.BindEnv("adapters.aws_mode", "SWITCHBOARD_AWS_MODE")
	_ = viper.BindEnv("adapters.gcp_mode", "SWITCHBOARD_GCP_MODE")
	_ = viper.BindEnv("adapters.aws_region", "AWS_REGION", "AWS_DEFAULT_REGION")
	_ = viper.BindEnv("adapters.bedrock_model_id", "SWITCHBOARD_BEDROCK_MODEL_ID")
	_ = viper.BindEnv("adapters.gcp_project", "GOOGLE_CLOUD_PROJECT")
	_ = viper.BindEnv("adapters.gcp_location", "VERTEX_LOCATION")
	_ = viper.BindEnv("adapters.vertex_model", "SWITCHBOARD_VERTEX_MODEL")

	// Telemetry config
	_ = viper.BindEnv("telemetry.enabled", "SWITCHBOARD_TELEMETRY_ENABLED")

	// Reviewer config
	_ = viper.BindEnv("reviewer.keys", "SWITCHBOARD_REVIEWER_KEYS")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

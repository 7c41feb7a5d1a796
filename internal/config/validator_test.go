package config

import (
	"strings"
	"testing"
)

// validConfig returns a defaulted valid Config for testing.
func validConfig() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_InvalidBackend(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Approvals.Backend = "redis"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Approvals.Backend") {
		t.Errorf("error = %q, want to contain 'Approvals.Backend'", err.Error())
	}
}

func TestValidate_InvalidDatabaseURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Approvals.DatabaseURL = "mysql://nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "sqlite://") {
		t.Errorf("error = %q, want to mention valid prefixes", err.Error())
	}
}

func TestValidate_DatabaseURLPrefixes(t *testing.T) {
	t.Parallel()

	for _, dsn := range []string{
		"sqlite://data/switchboard.db",
		"sqlite://:memory:",
		"postgres://sb:sb@localhost:5432/switchboard",
		"postgresql://sb@db/switchboard",
	} {
		cfg := validConfig()
		cfg.Approvals.DatabaseURL = dsn
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with %q unexpected error: %v", dsn, err)
		}
	}
}

func TestValidate_EmptySQLitePath(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Approvals.DatabaseURL = "sqlite://"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for empty sqlite path, got nil")
	}
}

func TestValidate_InvalidMode(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Adapters.AWSMode = "sandbox"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "dry-run live") {
		t.Errorf("error = %q, want to list valid modes", err.Error())
	}
}

func TestValidate_LiveBedrockNeedsRegion(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Adapters.EnableBedrock = true
	cfg.Adapters.AWSMode = "live"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "aws_region") {
		t.Errorf("error = %q, want to mention aws_region", err.Error())
	}

	cfg.Adapters.AWSRegion = "us-east-1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with region unexpected error: %v", err)
	}
}

func TestValidate_LiveVertexNeedsProject(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Adapters.EnableVertex = true
	cfg.Adapters.GCPMode = "live"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "gcp_project") {
		t.Errorf("error = %q, want to mention gcp_project", err.Error())
	}

	cfg.Adapters.GCPProject = "demo-project"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with project unexpected error: %v", err)
	}
}

func TestValidate_DryRunNeedsNoCloudSettings(t *testing.T) {
	t.Parallel()

	// Enabled adapters in dry-run mode must validate without credentials.
	cfg := validConfig()
	cfg.Adapters.EnableBedrock = true
	cfg.Adapters.EnableVertex = true

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() dry-run adapters unexpected error: %v", err)
	}
}

func TestValidate_InvalidOPAURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Policy.OPAURL = "not a url"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "valid URL") {
		t.Errorf("error = %q, want to contain 'valid URL'", err.Error())
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Server.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for bad log level, got nil")
	}
}

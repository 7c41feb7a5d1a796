package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigLimits(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.LimitFor("p0"); got.MaxActions != 1 || got.WindowSeconds != 60 {
		t.Fatalf("unexpected p0 limit %+v", got)
	}
	if got := cfg.LimitFor("p3"); got.MaxActions != 20 {
		t.Fatalf("expected default fallback for unknown severity, got %+v", got)
	}
}

func TestLoadConfigKeepsDefaultsForMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "rate_limits:\n  p0:\n    window_seconds: 30\n    limit: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.LimitFor("p0"); got.WindowSeconds != 30 || got.MaxActions != 2 {
		t.Fatalf("unexpected p0 limit %+v", got)
	}
	if got := cfg.LimitFor("default"); got.MaxActions != 20 {
		t.Fatalf("expected default limit preserved, got %+v", got)
	}
	if !cfg.RequiresApprovalTag([]string{"pii"}) {
		t.Fatal("expected default approval tags preserved")
	}
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRequiresApprovalTag(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RequiresApprovalTag([]string{"public"}) {
		t.Fatal("public tag must not trigger approval")
	}
	if !cfg.RequiresApprovalTag([]string{"public", "financial"}) {
		t.Fatal("financial tag must trigger approval")
	}
	if cfg.RequiresApprovalTag(nil) {
		t.Fatal("empty tag set must not trigger approval")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Postgres.Host != DefaultPGHost || cfg.Postgres.Port != DefaultPGPort {
		t.Errorf("postgres defaults = %+v", cfg.Postgres)
	}
	if cfg.Reconcile.Enabled {
		t.Error("reconcile should default to disabled")
	}
	if cfg.Reconcile.MergeThreshold != DefaultMergeThreshold {
		t.Errorf("merge threshold = %v, want %v", cfg.Reconcile.MergeThreshold, DefaultMergeThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"

[server]
addr = ":9090"

[postgres]
host = "db.internal"
database = "unite_test"

[reconcile]
enabled = true
merge_threshold = 0.9
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Server.Addr != ":9090" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Database != "unite_test" {
		t.Errorf("postgres overrides = %+v", cfg.Postgres)
	}
	if cfg.Postgres.Port != DefaultPGPort {
		t.Errorf("unset port should keep default, got %d", cfg.Postgres.Port)
	}
	if !cfg.Reconcile.Enabled || cfg.Reconcile.MergeThreshold != 0.9 {
		t.Errorf("reconcile overrides = %+v", cfg.Reconcile)
	}
}

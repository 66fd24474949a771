package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SheetURL != "" {
		t.Errorf("SheetURL = %q, want empty", cfg.SheetURL)
	}
	if cfg.PullInterval != 20*time.Second {
		t.Errorf("PullInterval = %s, want 20s", cfg.PullInterval)
	}
	if cfg.GraceDuration != 30*time.Second {
		t.Errorf("GraceDuration = %s, want 30s", cfg.GraceDuration)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should never be empty")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `sheet_url: https://example.com/exec
member: m4
data_dir: ` + dir + `
pull_interval: 45s
grace_duration: 1m
dashboard_addr: ":9000"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SheetURL != "https://example.com/exec" {
		t.Errorf("SheetURL = %q", cfg.SheetURL)
	}
	if cfg.Member != "m4" {
		t.Errorf("Member = %q, want m4", cfg.Member)
	}
	if cfg.PullInterval != 45*time.Second {
		t.Errorf("PullInterval = %s, want 45s", cfg.PullInterval)
	}
	if cfg.GraceDuration != time.Minute {
		t.Errorf("GraceDuration = %s, want 1m", cfg.GraceDuration)
	}
	if cfg.CachePath() != filepath.Join(dir, "cache.db") {
		t.Errorf("CachePath = %q", cfg.CachePath())
	}
	if cfg.RosterPath() != filepath.Join(dir, "roster.yaml") {
		t.Errorf("RosterPath = %q", cfg.RosterPath())
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit missing config file should be an error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("sheet_url: https://file.example/exec\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DEEN_SHEET_URL", "https://env.example/exec")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SheetURL != "https://env.example/exec" {
		t.Errorf("SheetURL = %q, want env value", cfg.SheetURL)
	}
}

func TestPullIntervalClamped(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"2s", MinPullInterval},
		{"5m", MaxPullInterval},
		{"30s", 30 * time.Second},
	}

	for _, tt := range tests {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte("pull_interval: "+tt.in+"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", tt.in, err)
		}
		if cfg.PullInterval != tt.want {
			t.Errorf("pull_interval %s clamped to %s, want %s", tt.in, cfg.PullInterval, tt.want)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesYAMLAndEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
server:
  port: "9090"
session:
  ttl: 30m
redis:
  addr: localhost:6379
reference:
  source: file
  questionsPath: data/questions.json
  scoringPath: data/scoring.json
events:
  publisher: kafka
  kafkaBrokers: ["kafka-1:9092"]
log:
  format: text
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected PORT override, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Reference.Source != "file" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Log.Format != "text" || cfg.Log.Level != "info" {
		t.Fatalf("expected yaml format and default level, got %q/%q", cfg.Log.Format, cfg.Log.Level)
	}
	if got := TTLDuration(cfg.Session.TTL, time.Hour); got != 30*time.Minute {
		t.Fatalf("unexpected session ttl %v", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Reference.Source != "embedded" || cfg.Events.Publisher != "gochannel" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected .env value, got %q", cfg.Log.Level)
	}
}

func TestTTLDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"garbage", time.Minute},
		{"90s", 90 * time.Second},
	}
	for _, tc := range cases {
		if got := TTLDuration(tc.raw, time.Minute); got != tc.want {
			t.Fatalf("TTLDuration(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

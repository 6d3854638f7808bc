package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: "9090"
log:
  level: debug
  format: pretty
redis:
  addr: localhost:6379
  ttl: 5m
exam:
  ttl: 10m
  time_limit: 600
  tick_interval: 500ms
  pass_threshold: 80
`

func TestLoadReadsYAML(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DATABASE_URL", "")

	path := writeConfig(t, sample)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" || cfg.Log.Format != "pretty" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Exam.TimeLimit != 600 || cfg.Exam.PassThreshold != 80 {
		t.Fatalf("unexpected exam section %+v", cfg.Exam)
	}
	if got := TTLDuration(cfg.Exam.TickInterval, time.Second); got != 500*time.Millisecond {
		t.Fatalf("tick interval = %v", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DATABASE_URL", "postgres://exam@db/exams")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Fatalf("env did not override log section: %+v", cfg.Log)
	}
	if cfg.Postgres.URL != "postgres://exam@db/exams" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected stores: %q %q", cfg.Postgres.URL, cfg.Redis.Addr)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Port != "" || cfg.Exam.TimeLimit != 0 {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("EXAM_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("EXAM_TEST_VALUE", "")
	os.Unsetenv("EXAM_TEST_VALUE")

	LoadEnv(path)
	if got := os.Getenv("EXAM_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty = %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("bogus = %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("90s = %v", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

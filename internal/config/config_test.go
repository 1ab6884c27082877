package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "quiz.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Storage.TestsKey != "english-tests" || cfg.Storage.SubmissionsKey != "english-test-submissions" {
		t.Fatalf("unexpected keys: %+v", cfg.Storage)
	}
	if cfg.Storage.PollInterval != time.Second || cfg.Attempt.Retention != 10*time.Minute {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.Attempt.SecondsPerQuestion != 60 || cfg.Trivia.Timeout != 5*time.Second {
		t.Fatalf("unexpected attempt/trivia defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "quiz.yaml")
	content := `
server:
  addr: ":9090"
storage:
  driver: memory
  poll_interval: 250ms
attempt:
  seconds_per_question: 30
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_ATTEMPT_SECONDS_PER_QUESTION", "15")
	t.Setenv("QUIZ_STORAGE_TESTS_KEY", "tests-v2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" || cfg.Storage.Driver != "memory" || cfg.Log.Level != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Storage.PollInterval != 250*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 250ms", cfg.Storage.PollInterval)
	}
	if cfg.Attempt.SecondsPerQuestion != 15 || cfg.Storage.TestsKey != "tests-v2" {
		t.Fatalf("env values must win over the file: %+v", cfg)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("QUIZ_SERVER_ADDR=:7070\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("QUIZ_SERVER_ADDR") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("Addr = %q, want :7070 from .env", cfg.Server.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: Storage{Driver: "sqlite", TestsKey: "a", SubmissionsKey: "b"},
			Attempt: Attempt{SecondsPerQuestion: 60},
		}
	}

	cases := map[string]func(*Config){
		"unknown driver":  func(c *Config) { c.Storage.Driver = "mongo" },
		"postgres no dsn": func(c *Config) { c.Storage.Driver = "postgres" },
		"zero seconds":    func(c *Config) { c.Attempt.SecondsPerQuestion = 0 },
		"same keys":       func(c *Config) { c.Storage.SubmissionsKey = "a" },
		"empty tests key": func(c *Config) { c.Storage.TestsKey = "" },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

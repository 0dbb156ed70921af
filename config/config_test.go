package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"AUTOMATION_TIMEZONE", "AUTOMATION_START_HOUR", "DAILY_SCHEDULE", "SWEEP_SCHEDULE", "GENERATION_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Timezone != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata, got %s", cfg.Timezone)
	}
	if cfg.StartHour != 10 {
		t.Fatalf("expected start hour 10, got %d", cfg.StartHour)
	}
	if cfg.DailySchedule != "0 3 * * *" {
		t.Fatalf("unexpected daily schedule %q", cfg.DailySchedule)
	}
	if cfg.SweepSchedule != "@every 1m" {
		t.Fatalf("unexpected sweep schedule %q", cfg.SweepSchedule)
	}
	if cfg.GenerationTimeout != 45*time.Second {
		t.Fatalf("expected 45s generation timeout, got %s", cfg.GenerationTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTOMATION_START_HOUR", "9")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("VERIFY_IMAGES", "true")
	t.Setenv("STALE_POSTING_AFTER", "not-a-duration")

	cfg := Load()
	if cfg.StartHour != 9 {
		t.Fatalf("expected 9, got %d", cfg.StartHour)
	}
	if cfg.GenerationTimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.GenerationTimeout)
	}
	if !cfg.VerifyImages {
		t.Fatalf("expected VerifyImages to be true")
	}
	if cfg.StalePostingAfter != 10*time.Minute {
		t.Fatalf("expected default on parse error, got %s", cfg.StalePostingAfter)
	}
}

func TestLoadRejectsOutOfRangeStartHour(t *testing.T) {
	cases := map[string]int{
		"-1": 10,
		"24": 10,
		"36": 10,
		"0":  0,
		"23": 23,
	}
	for raw, want := range cases {
		t.Setenv("AUTOMATION_START_HOUR", raw)
		if got := Load().StartHour; got != want {
			t.Fatalf("AUTOMATION_START_HOUR=%s: expected %d, got %d", raw, want, got)
		}
	}
}

func TestLoadLogColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("LOG_COLOR", "")
	if !Load().LogColor {
		t.Fatalf("expected color by default")
	}
	t.Setenv("LOG_COLOR", "false")
	if Load().LogColor {
		t.Fatalf("LOG_COLOR=false must disable color")
	}
	t.Setenv("LOG_COLOR", "true")
	t.Setenv("NO_COLOR", "1")
	if Load().LogColor {
		t.Fatalf("NO_COLOR must disable color")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus_Mons"}
	loc, err := cfg.Location()
	if err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
	if loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}
}

func TestLoadEnvOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTOMATION_START_HOUR=11\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("AUTOMATION_START_HOUR", "")

	loaded, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != ".env" {
		t.Fatalf("expected .env to be loaded, got %v", loaded)
	}
	if got := Load().StartHour; got != 11 {
		t.Fatalf("expected start hour from .env, got %d", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://admin.example.com, ,https://ops.example.com ")
	got := Load().CORSAllowedOrigins
	if len(got) != 2 || got[0] != "https://admin.example.com" || got[1] != "https://ops.example.com" {
		t.Fatalf("unexpected origins %q", got)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	if got := Load().CORSAllowedOrigins; len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Fatalf("expected default origin, got %q", got)
	}
}

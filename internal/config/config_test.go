package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "BACKEND_URL", "FLEX_PRODUCTION",
		"FLEX_BASE_URL", "DATABASE_URL", "REDIS_URL", shutdownSecondsEnvVar, shutdownDurEnvVar,
		outcomeSecondsEnvVar, outcomeDurEnvVar, backendTimeoutEnvVar, submitRateEnvVar,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "http://localhost:3000" {
		t.Fatalf("unexpected backend url %q", cfg.BackendURL)
	}
	if cfg.FlexProduction {
		t.Fatal("production must be off by default")
	}
	if cfg.OutcomeTTL != time.Hour || cfg.ShutdownPeriod != 10*time.Second || cfg.BackendTimeout != 0 {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.SubmitRate != 10 {
		t.Fatalf("unexpected submit rate %d", cfg.SubmitRate)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_URL", "https://shop.example.com/")
	t.Setenv("FLEX_PRODUCTION", "true")
	t.Setenv("OUTCOME_TTL_SECONDS", "90")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("PORT", ":9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "https://shop.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if !cfg.FlexProduction {
		t.Fatal("expected production on")
	}
	if cfg.OutcomeTTL != 90*time.Second || cfg.BackendTimeout != 5*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.Address() != ":9000" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"BACKEND_URL":       "/relative",
		"FLEX_BASE_URL":     "testflex",
		"FLEX_PRODUCTION":   "maybe",
		"OUTCOME_TTL":       "soon",
		"BACKEND_TIMEOUT":   "x",
		"SUBMIT_RATE_LIMIT": "lots",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadRequiresRedisOutsideDev(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

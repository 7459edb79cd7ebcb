package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "Flex Checkout"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultBackendURL     = "http://localhost:3000"
	defaultShutdownDelay  = 10 * time.Second
	defaultOutcomeTTL     = time.Hour
	shutdownSecondsEnvVar = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurEnvVar     = "SHUTDOWN_TIMEOUT"
	outcomeSecondsEnvVar  = "OUTCOME_TTL_SECONDS"
	outcomeDurEnvVar      = "OUTCOME_TTL"
	backendTimeoutEnvVar  = "BACKEND_TIMEOUT"
	flexProductionEnvVar  = "FLEX_PRODUCTION"
	submitRateEnvVar      = "SUBMIT_RATE_LIMIT"
	defaultSubmitRate     = 10
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	BackendURL     string
	FlexProduction bool
	FlexBaseURL    string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	OutcomeTTL     time.Duration
	BackendTimeout time.Duration
	SubmitRate     int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", defaultBackendURL), "/"),
		FlexBaseURL:    strings.TrimRight(os.Getenv("FLEX_BASE_URL"), "/"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		OutcomeTTL:     defaultOutcomeTTL,
		SubmitRate:     defaultSubmitRate,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.OutcomeTTL, err = durationEnv(outcomeSecondsEnvVar, outcomeDurEnvVar, cfg.OutcomeTTL); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(backendTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", backendTimeoutEnvVar, err)
		}
		cfg.BackendTimeout = d
	}
	if v := os.Getenv(flexProductionEnvVar); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", flexProductionEnvVar, err)
		}
		cfg.FlexProduction = b
	}

	if v := os.Getenv(submitRateEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", submitRateEnvVar, err)
		}
		cfg.SubmitRate = n
	}

	if err := absoluteURL("BACKEND_URL", cfg.BackendURL); err != nil {
		return Config{}, err
	}
	if cfg.FlexBaseURL != "" {
		if err := absoluteURL("FLEX_BASE_URL", cfg.FlexBaseURL); err != nil {
			return Config{}, err
		}
	}

	if !cfg.IsDev() && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func absoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", name, raw)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

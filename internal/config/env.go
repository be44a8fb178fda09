package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom cloud log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ProviderModels defines the model triplet for a provider.
type ProviderModels struct {
	Primary   string
	Secondary string
	Fast      string
}

// ProvidersConfig defines engines and models per provider, and which
// engine is primary vs. secondary for failover.
type ProvidersConfig struct {
	PrimaryEngine   string // "openai"|"anthropic"
	SecondaryEngine string // "anthropic"|"openai"
	OpenAI          ProviderModels
	Anthropic       ProviderModels
}

// ExecutorConfig defines batch worker behavior and limits (§6).
type ExecutorConfig struct {
	MaxConcurrentBatches int
	PerAttemptTimeout    time.Duration
	MaxRetries           int
	RetryBackoff         time.Duration
	StuckThreshold       time.Duration
	BreakerBaseBackoff   time.Duration
	BreakerMaxBackoff    time.Duration
}

// PlannerConfig defines the planner's token-budget and window tunables.
type PlannerConfig struct {
	WindowSize           int
	TokenTargetSimple    int
	TokenTargetModerate  int
	TokenTargetComplex   int
	LegacyClassification bool
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr           string
	ProgressLinger time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Providers ProvidersConfig
	Executor  ExecutorConfig
	Planner   PlannerConfig
	Server    ServerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/doctranslate.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_doctranslate",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Providers = ProvidersConfig{
		PrimaryEngine:   getEnv("PRIMARY_PROVIDER", "openai"),
		SecondaryEngine: getEnv("SECONDARY_PROVIDER", "anthropic"),
		OpenAI: ProviderModels{
			Primary:   getEnv("OPENAI_PRIMARY_MODEL", "gpt-4.1"),
			Secondary: getEnv("OPENAI_SECONDARY_MODEL", "gpt-4o"),
			Fast:      getEnv("OPENAI_FAST_MODEL", "gpt-4.1-mini"),
		},
		Anthropic: ProviderModels{
			Primary:   getEnv("ANTHROPIC_PRIMARY_MODEL", "claude-3-5-sonnet"),
			Secondary: getEnv("ANTHROPIC_SECONDARY_MODEL", "claude-3-opus"),
			Fast:      getEnv("ANTHROPIC_FAST_MODEL", "claude-3-haiku"),
		},
	}

	cfg.Executor = ExecutorConfig{
		MaxConcurrentBatches: parseInt(getEnv("MAX_CONCURRENT_BATCHES", "4"), 4),
		PerAttemptTimeout:    parseDuration(getEnv("PER_ATTEMPT_TIMEOUT_S", "600s"), 600*time.Second),
		MaxRetries:           parseInt(getEnv("MAX_RETRIES", "3"), 3),
		RetryBackoff:         parseDuration(getEnv("RETRY_BACKOFF_S", "2s"), 2*time.Second),
		StuckThreshold:       parseDuration(getEnv("STUCK_THRESHOLD_S", "600s"), 600*time.Second),
		BreakerBaseBackoff:   parseDuration(getEnv("BREAKER_BASE_BACKOFF_S", "30s"), 30*time.Second),
		BreakerMaxBackoff:    parseDuration(getEnv("BREAKER_MAX_BACKOFF_S", "300s"), 5*time.Minute),
	}

	cfg.Planner = PlannerConfig{
		WindowSize:           parseInt(getEnv("WINDOW_SIZE", "100"), 100),
		TokenTargetSimple:    parseInt(getEnv("TOKEN_TARGET_SIMPLE", "5000"), 5000),
		TokenTargetModerate:  parseInt(getEnv("TOKEN_TARGET_MODERATE", "3000"), 3000),
		TokenTargetComplex:   parseInt(getEnv("TOKEN_TARGET_COMPLEX", "2000"), 2000),
		LegacyClassification: parseBool(getEnv("LEGACY_CLASSIFICATION", "0")),
	}

	cfg.Server = ServerConfig{
		Addr:           getEnv("LISTEN_ADDR", ":8080"),
		ProgressLinger: parseDuration(getEnv("PROGRESS_LINGER", "5m"), 5*time.Minute),
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}

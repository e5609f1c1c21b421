package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	Environment string // development | production

	DatabaseDSN string

	IdentityVerifierURL string

	ElectionsBaseURL string
	S2SSharedSecret  string

	AnonymizationSalt string

	TokenTTL      time.Duration
	SessionMaxAge time.Duration

	ProductionResetAllowed bool

	RateLimitAuth       int
	RateLimitTokenIssue int
	RateLimitBallot     int
	RateLimitAdminReset int
	RateLimitWindow     time.Duration

	SchedulerTick time.Duration
	OrphanSweep   time.Duration
}

func Load() (Config, error) {
	// .env is a local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		ServiceName: envString("SERVICE_NAME", "kosning"),
		HTTPPort:    envString("HTTP_PORT", "8080"),
		Environment: strings.ToLower(envString("ENVIRONMENT", "development")),

		DatabaseDSN: buildDSN(),

		IdentityVerifierURL: os.Getenv("IDENTITY_VERIFIER_URL"),

		ElectionsBaseURL: envString("ELECTIONS_BASE_URL", "http://localhost:8081"),
		S2SSharedSecret:  os.Getenv("S2S_SHARED_SECRET"),

		AnonymizationSalt: os.Getenv("ANONYMIZATION_SALT"),

		TokenTTL:      envDuration("TOKEN_TTL", 2*time.Hour),
		SessionMaxAge: envDuration("SESSION_MAX_AGE", 30*time.Minute),

		ProductionResetAllowed: envBool("PRODUCTION_RESET_ALLOWED", false),

		RateLimitAuth:       envInt("RATE_LIMIT_AUTH", 30),
		RateLimitTokenIssue: envInt("RATE_LIMIT_TOKEN_ISSUE", 10),
		RateLimitBallot:     envInt("RATE_LIMIT_BALLOT", 20),
		RateLimitAdminReset: envInt("RATE_LIMIT_ADMIN_RESET", 5),
		RateLimitWindow:     envDuration("RATE_LIMIT_WINDOW", time.Minute),

		SchedulerTick: envDuration("SCHEDULER_TICK", time.Minute),
		OrphanSweep:   envDuration("ORPHAN_SWEEP_INTERVAL", 15*time.Minute),
	}

	if cfg.Environment != "development" && cfg.Environment != "production" {
		return Config{}, fmt.Errorf("unknown ENVIRONMENT %q", cfg.Environment)
	}
	return cfg, nil
}

// IsProduction gates the destructive reset-all guardrail.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// buildDSN assembles a Postgres DSN from DATABASE_* parts, preferring a full
// DATABASE_DSN when present.
func buildDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN")); dsn != "" {
		return dsn
	}
	host := envString("DATABASE_HOST", "")
	if host == "" {
		return ""
	}
	parts := []string{
		"host=" + host,
		"port=" + envString("DATABASE_PORT", "5432"),
		"user=" + envString("DATABASE_USER", "kosning"),
		"dbname=" + envString("DATABASE_NAME", "kosning"),
		"sslmode=" + envString("DATABASE_SSLMODE", "require"),
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		parts = append(parts, "password="+password)
	}
	return strings.Join(parts, " ")
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

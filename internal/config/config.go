package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Classifier   ClassifierConfig
	Escalation   EscalationConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// ClassifierConfig tunes the classifier integration.
type ClassifierConfig struct {
	CacheTTLMinutes         int
	SpamConfidenceThreshold float64
}

// EscalationConfig tunes the staleness sweep.
type EscalationConfig struct {
	StaleAfterDays       int
	SweepIntervalMinutes int
	ItemTimeoutSeconds   int
	BatchLimit           int
}

// RateLimitConfig tunes the submission rate governor.
type RateLimitConfig struct {
	SubmitCapacity          int
	SubmitWindowSeconds     int
	EvictionIntervalMinutes int
	IdleTimeoutMinutes      int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	spamThreshold, err := strconv.ParseFloat(getEnv("CLASSIFIER_SPAM_CONFIDENCE_THRESHOLD", "0.6"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_SPAM_CONFIDENCE_THRESHOLD: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "grievance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Classifier: ClassifierConfig{
			CacheTTLMinutes:         getEnvAsInt("CLASSIFIER_CACHE_TTL_MINUTES", 60),
			SpamConfidenceThreshold: spamThreshold,
		},
		Escalation: EscalationConfig{
			StaleAfterDays:       getEnvAsInt("ESCALATION_STALE_AFTER_DAYS", 3),
			SweepIntervalMinutes: getEnvAsInt("ESCALATION_SWEEP_INTERVAL_MINUTES", 60),
			ItemTimeoutSeconds:   getEnvAsInt("ESCALATION_ITEM_TIMEOUT_SECONDS", 10),
			BatchLimit:           getEnvAsInt("ESCALATION_BATCH_LIMIT", 500),
		},
		RateLimit: RateLimitConfig{
			SubmitCapacity:          getEnvAsInt("RATE_LIMIT_SUBMIT_CAPACITY", 5),
			SubmitWindowSeconds:     getEnvAsInt("RATE_LIMIT_SUBMIT_WINDOW_SECONDS", 3600),
			EvictionIntervalMinutes: getEnvAsInt("RATE_LIMIT_EVICTION_INTERVAL_MINUTES", 10),
			IdleTimeoutMinutes:      getEnvAsInt("RATE_LIMIT_IDLE_TIMEOUT_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// StaleAfter returns the staleness threshold for the escalation sweep.
func (e EscalationConfig) StaleAfter() time.Duration {
	if e.StaleAfterDays <= 0 {
		return 3 * 24 * time.Hour
	}
	return time.Duration(e.StaleAfterDays) * 24 * time.Hour
}

// SweepInterval returns the cadence of the background sweep.
func (e EscalationConfig) SweepInterval() time.Duration {
	if e.SweepIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(e.SweepIntervalMinutes) * time.Minute
}

// ItemTimeout returns the per-ticket processing timeout within a sweep.
func (e EscalationConfig) ItemTimeout() time.Duration {
	if e.ItemTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.ItemTimeoutSeconds) * time.Second
}

// SubmitWindow returns the submission bucket refill window.
func (r RateLimitConfig) SubmitWindow() time.Duration {
	if r.SubmitWindowSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(r.SubmitWindowSeconds) * time.Second
}

// EvictionInterval returns the cadence of the bucket eviction sweep.
func (r RateLimitConfig) EvictionInterval() time.Duration {
	if r.EvictionIntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.EvictionIntervalMinutes) * time.Minute
}

// IdleTimeout returns how long a bucket may sit untouched before eviction.
func (r RateLimitConfig) IdleTimeout() time.Duration {
	if r.IdleTimeoutMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(r.IdleTimeoutMinutes) * time.Minute
}

// CacheTTL returns the classifier cache entry lifetime.
func (c ClassifierConfig) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

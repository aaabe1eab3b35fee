package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the sync daemon.
type Config struct {
	App       AppConfig
	API       APIConfig
	Realtime  RealtimeConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Mailer    MailerConfig
	Scheduler SchedulerConfig
	AI        AIConfig
}

// AppConfig controls the daemon's own HTTP surface.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// APIConfig points at the portal backend REST API.
type APIConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
	LoginPath             string
}

// RealtimeConfig points at the push-messaging endpoint.
type RealtimeConfig struct {
	URL                     string
	ReconnectInitialSeconds int
	ReconnectMaxSeconds     int
	ReconnectMaxAttempts    int
}

// RedisConfig holds local durable cache connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. Development mirrors the
// app environment so a production daemon does not run with zap's
// development behavior enabled.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines credential handling parameters.
type AuthConfig struct {
	SealSecret string
}

// MailerConfig holds the email delivery provider settings.
type MailerConfig struct {
	ProviderURL string
	APIKey      string
	FromAddress string
}

// SchedulerConfig controls the calendar reminder checker.
type SchedulerConfig struct {
	IntervalMinutes int
}

// AIConfig points at the generative endpoint for the petition helper.
type AIConfig struct {
	EndpointURL    string
	APIKey         string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "portal-sync"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		API: APIConfig{
			BaseURL:               getEnv("PORTAL_API_BASE_URL", "http://127.0.0.1:3333"),
			RequestTimeoutSeconds: getEnvAsInt("PORTAL_API_TIMEOUT_SECONDS", 15),
			LoginPath:             getEnv("PORTAL_API_LOGIN_PATH", "/auth/login"),
		},
		Realtime: RealtimeConfig{
			URL:                     getEnv("PORTAL_WS_URL", "ws://127.0.0.1:3333/ws"),
			ReconnectInitialSeconds: getEnvAsInt("PORTAL_WS_RECONNECT_INITIAL_SECONDS", 1),
			ReconnectMaxSeconds:     getEnvAsInt("PORTAL_WS_RECONNECT_MAX_SECONDS", 30),
			ReconnectMaxAttempts:    getEnvAsInt("PORTAL_WS_RECONNECT_MAX_ATTEMPTS", 8),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env != "production",
		},
		Auth: AuthConfig{
			SealSecret: getEnv("AUTH_SEAL_SECRET", "dev-secret"),
		},
		Mailer: MailerConfig{
			ProviderURL: getEnv("MAIL_PROVIDER_URL", ""),
			APIKey:      os.Getenv("MAIL_PROVIDER_API_KEY"),
			FromAddress: getEnv("MAIL_FROM", "noreply@example.com"),
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes: getEnvAsInt("REMINDER_INTERVAL_MINUTES", 60),
		},
		AI: AIConfig{
			EndpointURL:    getEnv("AI_ENDPOINT_URL", ""),
			APIKey:         os.Getenv("AI_API_KEY"),
			TimeoutSeconds: getEnvAsInt("AI_TIMEOUT_SECONDS", 60),
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

// RequestTimeout returns the backend call timeout duration.
func (a APIConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// InitialBackoff returns the first reconnect delay.
func (r RealtimeConfig) InitialBackoff() time.Duration {
	if r.ReconnectInitialSeconds <= 0 {
		return time.Second
	}
	return time.Duration(r.ReconnectInitialSeconds) * time.Second
}

// MaxBackoff returns the reconnect delay ceiling.
func (r RealtimeConfig) MaxBackoff() time.Duration {
	if r.ReconnectMaxSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.ReconnectMaxSeconds) * time.Second
}

// Timeout returns the generative call timeout duration.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Interval returns the reminder tick cadence.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
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

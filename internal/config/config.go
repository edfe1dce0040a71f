package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the gateway adapter configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	// Remote checkout platform credentials and endpoints.
	AccountID      string
	APIKey         string
	WebhookSecret  string
	CheckoutAPIURL string
	PluginLogURL   string

	// Gateway behaviour toggles owned by the host operator.
	SandboxMode        bool
	AllowSubscriptions bool

	// Host datastore and replay-guard backends.
	DatabaseURL string
	RedisURL    string

	// Bearer secret protecting the admin proxy routes.
	AdminJWTSecret string

	// Outbound HTTP timeout for remote API calls.
	HTTPTimeout time.Duration

	// Default return/complete URL base when the host supplies none.
	ReturnURLBase string

	// Replay-guard TTL for webhook envelope ids.
	WebhookReplayTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		AccountID:          strings.TrimSpace(k.String("ACCOUNT_ID")),
		APIKey:             strings.TrimSpace(k.String("API_KEY")),
		WebhookSecret:      strings.TrimSpace(k.String("WEBHOOK_SECRET")),
		CheckoutAPIURL:     valueOrDefault(k.String("CHECKOUT_API_URL"), "https://checkout.tebex.io/api"),
		PluginLogURL:       valueOrDefault(k.String("PLUGIN_LOG_URL"), "https://plugin-logs.tebex.io/"),
		SandboxMode:        parseBool(k.String("SANDBOX_MODE")),
		AllowSubscriptions: parseBool(k.String("ALLOW_SUBSCRIPTIONS")),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		AdminJWTSecret:     k.String("ADMIN_JWT_SECRET"),
		HTTPTimeout:        parseDuration(k.String("HTTP_TIMEOUT"), "15s"),
		ReturnURLBase:      strings.TrimRight(k.String("RETURN_URL_BASE"), "/"),
		WebhookReplayTTL:   parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "72h"),
	}

	if cfg.AccountID == "" {
		return nil, errors.New("ACCOUNT_ID is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API_KEY is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("WEBHOOK_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

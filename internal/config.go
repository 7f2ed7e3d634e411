package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Public origin of the web app, used for share and checkout return URLs
	BaseURL string

	// AI Provider Configuration
	AIProvider       string // "anthropic", "openai" or "mock"
	AnthropicAPIKey  string
	AnthropicModel   string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	AIRequestTimeout time.Duration
	SafetyBlockList  []string // extra terms on top of the built-in self-harm list

	// Entitlements
	FreeDailyScans int
	ResetTimezone  *time.Location

	// Identity provider tokens. Exactly one of AuthJWTSecret or AuthJWKSURL.
	AuthJWTSecret string
	AuthJWKSURL   string
	AuthIssuer    string
	AuthAudience  string

	// Unlock capability tokens handed to Pro scans
	UnlockTokenSecret string
	UnlockTokenTTL    time.Duration

	// Stripe Billing Configuration
	// Optional in development: checkout returns 503 and webhooks are
	// acknowledged without effect when the secret key is empty.
	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeOneTimePriceID string
	StripeMonthlyPriceID string

	// Webhook de-duplication. Falls back to process memory when empty.
	RedisURL string

	// Per-IP burst limit on scan submission
	ScanRateLimitPerMinute int

	// Scrape credentials for /metrics; all empty leaves it open
	MetricsUsername string
	MetricsPassword string
	MetricsToken    string
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// BillingEnabled reports whether Stripe is configured.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != ""
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Base URL defaults to localhost for development
		BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),

		// AI provider defaults
		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 30*time.Second),
		SafetyBlockList:  getEnvList("SAFETY_BLOCK_LIST"),

		FreeDailyScans: getEnvInt("FREE_DAILY_SCANS", 3),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthJWKSURL:   getEnv("AUTH_JWKS_URL", ""),
		AuthIssuer:    getEnv("AUTH_ISSUER", ""),
		AuthAudience:  getEnv("AUTH_AUDIENCE", "authenticated"),

		UnlockTokenSecret: getEnv("UNLOCK_TOKEN_SECRET", ""),
		UnlockTokenTTL:    getEnvDuration("UNLOCK_TOKEN_TTL", 30*time.Minute),

		// Stripe billing (optional)
		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeOneTimePriceID: getEnv("STRIPE_PRICE_ID_ONETIME", ""),
		StripeMonthlyPriceID: getEnv("STRIPE_PRICE_ID_MONTHLY", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		ScanRateLimitPerMinute: getEnvInt("SCAN_RATE_LIMIT_PER_MINUTE", 10),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
		MetricsToken:    getEnv("METRICS_TOKEN", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(getEnv("RESET_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("RESET_TIMEZONE is not a valid IANA zone: %w", err)
	}
	cfg.ResetTimezone = loc

	if cfg.FreeDailyScans < 1 {
		return nil, fmt.Errorf("FREE_DAILY_SCANS must be at least 1, got: %d", cfg.FreeDailyScans)
	}

	// Validate AI provider configuration
	switch cfg.AIProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is 'anthropic'")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is 'openai'")
		}
	case "mock":
	default:
		return nil, fmt.Errorf("AI_PROVIDER must be 'anthropic', 'openai' or 'mock', got: %s", cfg.AIProvider)
	}

	// Validate identity configuration
	if (cfg.AuthJWTSecret == "") == (cfg.AuthJWKSURL == "") {
		return nil, fmt.Errorf("exactly one of AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}

	if len(cfg.UnlockTokenSecret) < 32 {
		return nil, fmt.Errorf("UNLOCK_TOKEN_SECRET must be at least 32 characters")
	}

	// Validate billing configuration
	if cfg.BillingEnabled() {
		if cfg.StripeWebhookSecret == "" {
			return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
		}
		if cfg.StripeOneTimePriceID == "" || cfg.StripeMonthlyPriceID == "" {
			return nil, fmt.Errorf("STRIPE_PRICE_ID_ONETIME and STRIPE_PRICE_ID_MONTHLY are required when STRIPE_SECRET_KEY is set")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

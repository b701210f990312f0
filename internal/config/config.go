// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/auditelle/storefront/internal/reseller"
)

// Config holds all application configuration.
//
// The active reseller is not part of it: the reseller resolver reads
// RESELLER_ID itself so every consumer agrees on one selection.
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"
	AppURL    string // Public base URL used in Stripe redirects and emails

	// Reseller resolution
	ResellerStrict bool // Fail startup on an unknown RESELLER_ID instead of falling back

	// Storage (both optional, in-memory fallbacks when unset)
	DatabaseURL string
	RedisURL    string

	// Auth
	JWTSecret string // HS256 secret shared with the identity provider

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePrices        map[string]string // plan id -> price id, as configured

	// Detection backends
	PangramAPIKey    string
	PangramAPIURL    string
	PlagiarismAPIURL string

	// Email
	ResendAPIKey string

	// Tracing
	OTLPEndpoint     string
	OTLPInsecure     bool
	TraceSampleRatio float64

	// Anonymous endpoints
	DemoDailyLimit int
	RateLimitRPM   int
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultAppURL         = "http://localhost:3000"
	DefaultPangramAPIURL  = "https://text.api.pangramlabs.com/v3"
	DefaultDemoDailyLimit = 3
	DefaultRateLimitRPM   = 120
)

// pricedPlans are the plans that can carry a STRIPE_<PLAN>_PRICE_ID.
func pricedPlans() []reseller.PlanID {
	var out []reseller.PlanID
	for _, id := range reseller.PlanIDs() {
		if id.Paid() {
			out = append(out, id)
		}
	}
	return out
}

// PriceEnvKey is the variable holding the Stripe price of plan.
func PriceEnvKey(plan reseller.PlanID) string {
	return "STRIPE_" + strings.ToUpper(string(plan)) + "_PRICE_ID"
}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:           getEnv("LOG_FORMAT", DefaultLogFormat),
		AppURL:              strings.TrimRight(getEnv("APP_URL", DefaultAppURL), "/"),
		ResellerStrict:      getEnvBool("RESELLER_STRICT", false),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTSecret:           os.Getenv("AUTH_JWT_SECRET"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePrices:        make(map[string]string),
		PangramAPIKey:       os.Getenv("PANGRAM_API_KEY"),
		PangramAPIURL:       getEnv("PANGRAM_API_URL", DefaultPangramAPIURL),
		PlagiarismAPIURL:    os.Getenv("PLAGIARISM_API_URL"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:        getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		TraceSampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		DemoDailyLimit:      int(getEnvInt64("DEMO_DAILY_LIMIT", DefaultDemoDailyLimit)),
		RateLimitRPM:        int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
	}
	for _, plan := range pricedPlans() {
		if v := os.Getenv(PriceEnvKey(plan)); v != "" {
			cfg.StripePrices[string(plan)] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DemoDailyLimit < 0 {
		return fmt.Errorf("DEMO_DAILY_LIMIT must not be negative")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	if !c.IsProduction() {
		return nil
	}

	// Production refuses to start half-configured.
	if c.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required in production")
	}
	if !strings.HasPrefix(c.AppURL, "https://") {
		return fmt.Errorf("APP_URL must use https in production")
	}
	return nil
}

// PriceIDs returns the Stripe price to charge for each plan.
//
// Starter falls back to the legacy pro price, and pro is sold as starter
// when no dedicated price exists.
func (c *Config) PriceIDs() map[string]string {
	out := make(map[string]string, len(c.StripePrices)+2)
	for plan, id := range c.StripePrices {
		out[plan] = id
	}
	starter, pro := string(reseller.PlanStarter), string(reseller.PlanPro)
	if out[starter] == "" && out[pro] != "" {
		out[starter] = out[pro]
	}
	if out[pro] == "" && out[starter] != "" {
		out[pro] = out[starter]
	}
	return out
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string        `env:"PORT,default=8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER,default=carmelita-backend"`
	JWTTTL      time.Duration `env:"JWT_TTL,default=1h"`
	CORSOrigins []string
	CORSRaw     string        `env:"CORS_ALLOWED_ORIGINS,default=*"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiModel      string `env:"GEMINI_MODEL,default=gemini-2.5-flash"`
	AIHealthSchedule string `env:"AI_HEALTH_SCHEDULE"`

	InitialCredits    int64  `env:"INITIAL_CREDITS,default=0"`
	CreditPricingFile string `env:"CREDIT_PRICING_FILE,default=pricing.yaml"`

	RedisAddr     string `env:"REDIS_ADDR"`
	WebhookDedupe bool   `env:"WEBHOOK_DEDUPE,default=false"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST,default=10"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.StripeWebhookSecret = strings.TrimSpace(c.StripeWebhookSecret)
	c.StripeSecretKey = strings.TrimSpace(c.StripeSecretKey)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.Port = fallback(c.Port, "8080")
	c.JWTIssuer = fallback(c.JWTIssuer, "carmelita-backend")
	c.GeminiModel = fallback(c.GeminiModel, "gemini-2.5-flash")
	c.CORSOrigins = parseCSV(fallback(c.CORSRaw, "*"))

	if c.JWTTTL <= 0 {
		c.JWTTTL = time.Hour
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 5
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}

	if c.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if c.StripeWebhookSecret == "" {
		return Config{}, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.InitialCredits < 0 {
		return Config{}, errors.New("INITIAL_CREDITS must not be negative")
	}
	if c.WebhookDedupe && strings.TrimSpace(c.RedisAddr) == "" {
		return Config{}, errors.New("WEBHOOK_DEDUPE requires REDIS_ADDR")
	}

	return c, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

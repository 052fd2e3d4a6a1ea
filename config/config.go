// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
)

// Session stores
const (
	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"
	SessionStoreMemory   = "memory"
)

// Email providers
const (
	EmailProviderMailgun  = "MAILGUN"
	EmailProviderSendGrid = "SENDGRID"
	EmailProviderSES      = "SES"
)

// Config is the service configuration
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	Port        int    `env:"PORT" envDefault:"3000"`
	Environment string `env:"APP_ENV"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	Session   SessionConfig
	RateLimit RateLimitConfig
	OAuth     OAuthConfig
	Email     EmailConfig
	AWS       AWSConfig
}

// SessionConfig configures the session cookie and its store
type SessionConfig struct {
	Store        string        `env:"SESSION_STORE" envDefault:"database"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieName   string        `env:"SESSION_COOKIE" envDefault:"session_id"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	RedisURL     string        `env:"REDIS_URL"`
	GCInterval   time.Duration `env:"SESSION_GC_INTERVAL" envDefault:"10m"`
}

// RateLimitConfig applies per client ip
type RateLimitConfig struct {
	Max    int           `env:"RATE_LIMIT_MAX" envDefault:"10"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
}

// OAuthConfig holds the social provider credentials
type OAuthConfig struct {
	GoogleClientID       string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string        `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string        `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string        `env:"FACEBOOK_CLIENT_SECRET"`
	SuccessRedirect      string        `env:"OAUTH_SUCCESS_REDIRECT" envDefault:"/"`
	FailureRedirect      string        `env:"OAUTH_FAILURE_REDIRECT" envDefault:"/login"`
	StateTTL             time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
}

// GoogleEnabled is true when both Google credentials are set
func (o OAuthConfig) GoogleEnabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != ""
}

// FacebookEnabled is true when both Facebook credentials are set
func (o OAuthConfig) FacebookEnabled() bool {
	return o.FacebookClientID != "" && o.FacebookClientSecret != ""
}

// EmailConfig selects and configures the email transport
type EmailConfig struct {
	Provider string `env:"EMAIL_SERVICE_PROVIDER"`
	From     string `env:"EMAIL_FROM"`
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
}

// Enabled is true when an email provider is configured
func (e EmailConfig) Enabled() bool {
	return e.Provider != ""
}

// AWSConfig configures S3 and SES clients
type AWSConfig struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Bucket        string `env:"AWS_S3_BUCKET"`
	EndpointURL     string `env:"AWS_ENDPOINT_URL"`
}

// UploadsEnabled is true when a bucket is configured
func (a AWSConfig) UploadsEnabled() bool {
	return a.S3Bucket != ""
}

// Load reads files (default ".env") when present and parses the environment.
// Variables already set in the process win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return Parse()
}

// Parse reads the configuration from the process environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Environment == "" {
		cfg.Environment = os.Getenv("NODE_ENV")
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.Email.Provider = strings.ToUpper(strings.TrimSpace(cfg.Email.Provider))
	cfg.Session.Store = strings.ToLower(strings.TrimSpace(cfg.Session.Store))
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction is true for APP_ENV=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks required values and enums
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.BaseURL, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.Session.validate(); err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}

	if err := validation.ValidateStruct(&c.RateLimit,
		validation.Field(&c.RateLimit.Max, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	if c.Email.Enabled() {
		if err := c.Email.validate(); err != nil {
			return fmt.Errorf("invalid email configuration: %w", err)
		}
	}

	return nil
}

func (s *SessionConfig) validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&s.Store, validation.Required, validation.In(SessionStoreDatabase, SessionStoreRedis, SessionStoreMemory)),
	}
	if s.Store == SessionStoreRedis {
		rules = append(rules, validation.Field(&s.RedisURL, validation.Required))
	}
	return validation.ValidateStruct(s, rules...)
}

func (e *EmailConfig) validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&e.Provider, validation.In(EmailProviderMailgun, EmailProviderSendGrid, EmailProviderSES).
			Error("unsupported EMAIL_SERVICE_PROVIDER")),
		validation.Field(&e.From, validation.Required),
	}

	switch e.Provider {
	case EmailProviderMailgun:
		rules = append(rules,
			validation.Field(&e.SMTPHost, validation.Required),
			validation.Field(&e.SMTPPort, validation.Required),
			validation.Field(&e.SMTPUser, validation.Required),
			validation.Field(&e.SMTPPass, validation.Required),
		)
	case EmailProviderSendGrid:
		rules = append(rules,
			validation.Field(&e.SMTPUser, validation.Required),
			validation.Field(&e.SMTPPass, validation.Required),
		)
	}

	return validation.ValidateStruct(e, rules...)
}

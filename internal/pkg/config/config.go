package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT     JWTConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Payment PaymentConfig
	Email   EmailConfig
}

type JWTConfig struct {
	Secret    string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"JWT_EXPIRES_IN,        default=2160h"`
	CookieTTL time.Duration `env:"JWT_COOKIE_EXPIRES_IN, default=2160h"`
}

type MongoConfig struct {
	// URI may carry a <PASSWORD> placeholder so the credential can live in
	// its own variable; DSN() substitutes it.
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Password string `env:"MONGO_PASSWORD"`
	Database string `env:"MONGO_DB,  default=natours"`
}

// DSN returns the connection string with the password placeholder resolved.
func (m MongoConfig) DSN() string {
	return strings.ReplaceAll(m.URI, "<PASSWORD>", m.Password)
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type PaymentConfig struct {
	BaseURL       string `env:"PAYMENT_BASE_URL, default=https://api.stripe.com"`
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST, default=localhost"`
	Port     int    `env:"EMAIL_PORT, default=25"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM, default=hello@summitrails.io"`
}

// Production reports whether the service runs with production hardening
// (generic 5xx messages, secure cookies behind a proxy).
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

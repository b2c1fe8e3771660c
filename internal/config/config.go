package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"
)

type Config struct {
	// Core
	BotToken          string `env:"BOT_TOKEN,required,notEmpty"`
	OpenRouterKey     string `env:"OPENROUTER_API_KEY,required,notEmpty"`
	OpenRouterModel   string `env:"OPENROUTER_MODEL" envDefault:"anthropic/claude-3-haiku"`
	OpenRouterURL     string `env:"OPENROUTER_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterReferer string `env:"OPENROUTER_REFERER" envDefault:"https://localhost:8000"`
	DefaultCharacter  string `env:"DEFAULT_CHARACTER" envDefault:"ojou"`

	// Storage
	StoreDriver         string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL         string `env:"DATABASE_URL"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`
	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID"`
	RedisURL            string `env:"REDIS_URL"`

	// Payment: Stripe
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripePriceIDMonth  string `env:"STRIPE_PRICE_ID_MONTH"`
	StripePriceIDYear   string `env:"STRIPE_PRICE_ID_YEAR"`
	SuccessURL          string `env:"SUCCESS_URL" envDefault:"http://localhost:8000/success"`
	CancelURL           string `env:"CANCEL_URL" envDefault:"http://localhost:8000/cancel"`

	// Plan prices shown to users (JPY)
	PlanPriceMonthly decimal.Decimal `env:"PLAN_PRICE_MONTHLY" envDefault:"980"`
	PlanPriceYearly  decimal.Decimal `env:"PLAN_PRICE_YEARLY" envDefault:"9800"`

	// Server
	Port          int    `env:"PORT" envDefault:"8000"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Logging
	LogLevel             slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogTelegramChatID    int64      `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int        `env:"LOG_TOPIC_ERROR"`
	LogTopicSubscription int        `env:"LOG_TOPIC_SUBSCRIPTION"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings whose requirement depends on other settings.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverFirestore:
		if c.FirebaseProjectID == "" && c.FirebaseCredentials == "" {
			return errors.New("FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS is required for the firestore store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

// CheckoutEnabled reports whether Stripe checkout links can be generated.
func (c *Config) CheckoutEnabled() bool {
	return c.StripeSecretKey != "" && c.StripePriceIDMonth != ""
}

// PriceID returns the Stripe price identifier for a plan.
func (c *Config) PriceID(plan domain.SubscriptionType) string {
	if plan == domain.SubscriptionYearly {
		return c.StripePriceIDYear
	}
	return c.StripePriceIDMonth
}

// PlanForPrice resolves a Stripe price identifier, defaulting to monthly.
func (c *Config) PlanForPrice(priceID string) domain.SubscriptionType {
	if priceID != "" && priceID == c.StripePriceIDYear {
		return domain.SubscriptionYearly
	}
	return domain.SubscriptionMonthly
}

// PlanPrice returns the display price for a plan.
func (c *Config) PlanPrice(plan domain.SubscriptionType) decimal.Decimal {
	if plan == domain.SubscriptionYearly {
		return c.PlanPriceYearly
	}
	return c.PlanPriceMonthly
}

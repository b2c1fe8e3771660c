package config

import "time"

const (
	// Subscription lengths
	MonthlySubscriptionDays = 30
	YearlySubscriptionDays  = 365

	// Conversation retention
	MaxMessagesPerSummary = 50
	RecentMessagesLimit   = 20
	RecentSummariesLimit  = 5

	// Completion parameters
	ReplyTemperature   = 0.7
	ReplyMaxTokens     = 1000
	SummaryTemperature = 0.3
	SummaryMaxTokens   = 500

	// Name extraction bounds (runes)
	MinNameLen = 1
	MaxNameLen = 10

	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Payment processor timeout
	PaymentTimeout = 30 * time.Second

	// Checkout link cache duration
	CheckoutLinkTTL = 30 * time.Minute

	// Webhook event dedupe window
	WebhookDedupeTTL = 72 * time.Hour

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Rate limits (per minute, per chat)
	RateLimitPerMinute = 10

	// Summarizer queue
	SummarizerQueueSize = 64

	// HTTP server
	HTTPReadTimeout     = 15 * time.Second
	HTTPWriteTimeout    = 30 * time.Second
	HTTPIdleTimeout     = 60 * time.Second
	HTTPShutdownTimeout = 15 * time.Second

	// Persistence pool
	DBMaxConns = 20
	DBMinConns = 2
)

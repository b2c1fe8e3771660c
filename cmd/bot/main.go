package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	ojohoe "github.com/michikitagawa/ojohoe"
	"github.com/michikitagawa/ojohoe/internal/cache"
	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/handler"
	"github.com/michikitagawa/ojohoe/internal/httpserver"
	"github.com/michikitagawa/ojohoe/internal/middleware"
	"github.com/michikitagawa/ojohoe/internal/ratelimit"
	"github.com/michikitagawa/ojohoe/internal/repository"
	"github.com/michikitagawa/ojohoe/internal/repository/docstore"
	"github.com/michikitagawa/ojohoe/internal/repository/memstore"
	"github.com/michikitagawa/ojohoe/internal/service"
	"github.com/michikitagawa/ojohoe/internal/telegram"
)

type stores struct {
	users     service.UserRepository
	messages  service.MessageRepository
	summaries service.SummaryRepository
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverFirestore:
		s, err := docstore.Open(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			return nil, err
		}
		return &stores{users: s, messages: s, summaries: s, close: func() { s.Close() }}, nil

	case config.StoreDriverMemory:
		s := memstore.New()
		return &stores{users: s, messages: s, summaries: s, close: func() {}}, nil

	default:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, ojohoe.MigrationsFS); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			users:     repository.NewUserRepo(pool),
			messages:  repository.NewMessageRepo(pool),
			summaries: repository.NewSummaryRepo(pool),
			close:     pool.Close,
		}, nil
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer st.close()

	// Redis is optional: without it webhook dedupe is off and rate limits are per process
	var (
		events  service.EventLog
		limiter ratelimit.Limiter = ratelimit.NewLocal(config.RateLimitPerMinute)
	)
	if cfg.RedisURL != "" {
		rc, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		events = rc.EventLog(config.WebhookDedupeTTL)
		limiter = ratelimit.NewRedis(rc.Db, config.RateLimitPerMinute)
	}

	prompts, err := service.LoadPromptBook(ojohoe.PromptsFS, "prompts/characters.json", cfg.DefaultCharacter)
	if err != nil {
		slog.Error("failed to load prompts", "error", err)
		os.Exit(1)
	}

	// Initialize services
	checkout := service.NewCheckoutService(service.NewStripeSessionClient(cfg.StripeSecretKey), cfg)
	gateOpts := []service.GateOption{}
	if cfg.CheckoutEnabled() {
		gateOpts = append(gateOpts, service.WithCheckoutLinker(checkout))
	}
	gate := service.NewGate(st.users, gateOpts...)
	conv := service.NewConversationService(st.messages, st.summaries, nil)
	openRouter := service.NewOpenRouterService(cfg.OpenRouterKey, cfg.OpenRouterURL, cfg.OpenRouterModel, cfg.OpenRouterReferer)
	ai := service.NewAIService(openRouter, prompts, conv)
	summarizer := service.NewSummarizer(conv, ai, config.SummarizerQueueSize)
	consult := service.NewConsultService(gate, st.users, conv, ai, summarizer, cfg.DefaultCharacter)

	// Handler pointer for use in default handler closure
	var h *handler.Handler
	var ops *telegram.OpsLogger

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(func(err error) { ops.LogError(err, "update handler") }),
			middleware.Logging(),
			middleware.RateLimit(limiter, nil),
			middleware.Sender(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleText(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	ops = telegram.NewOpsLogger(b, cfg)
	payments := service.NewPaymentService(gate, cfg, telegram.NewNotifier(b, ops), events)

	h = handler.New(handler.Deps{
		Sender:   b,
		Cfg:      cfg,
		Consult:  consult,
		Status:   gate,
		Checkout: checkout,
		Ops:      ops,
	})
	h.Register(b)

	mode := "polling"
	deps := httpserver.Deps{Payments: payments}
	if cfg.WebhookURL != "" {
		mode = "webhook"
		deps.Telegram = b.WebhookHandler()
		deps.WebhookSecret = cfg.WebhookSecret
	}
	deps.Mode = mode

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summarizer.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return httpserver.New(cfg.Port, httpserver.NewRouter(deps)).Run(gctx)
	})

	g.Go(func() error {
		if mode == "webhook" {
			if _, err := b.SetWebhook(gctx, &bot.SetWebhookParams{
				URL:                cfg.WebhookURL,
				SecretToken:        cfg.WebhookSecret,
				DropPendingUpdates: cfg.DropPendingUpdates,
			}); err != nil {
				return err
			}
			slog.Info("starting bot", "mode", mode, "username", me.Username)
			b.StartWebhook(gctx)
			return nil
		}

		if _, err := b.DeleteWebhook(gctx, &bot.DeleteWebhookParams{DropPendingUpdates: cfg.DropPendingUpdates}); err != nil {
			slog.Warn("failed to delete webhook", "error", err)
		}
		slog.Info("starting bot", "mode", mode, "username", me.Username)
		b.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}

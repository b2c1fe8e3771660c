package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/michikitagawa/ojohoe/internal/ratelimit"
	"github.com/michikitagawa/ojohoe/internal/telegram"
)

const textRateLimited = "⏳ メッセージが多すぎます。少し待ってから送ってください。"

// RateLimit returns middleware that enforces per-chat message limits.
// Limiter failures let the update through. Notices go through sender, or the bot when nil.
func RateLimit(limiter ratelimit.Limiter, sender telegram.Sender) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			ok, err := limiter.Allow(ctx, chatID)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "chat_id", chatID)
				next(ctx, b, update)
				return
			}
			if !ok {
				slog.Debug("rate limited", "chat_id", chatID)
				var s telegram.Sender = b
				if sender != nil {
					s = sender
				}
				if err := telegram.SendText(ctx, s, chatID, textRateLimited, nil); err != nil {
					slog.Warn("send rate limit notice", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			updateType := "other"
			switch {
			case update.Message != nil:
				updateType = "message"
			case update.CallbackQuery != nil:
				updateType = "callback_query"
			}

			next(ctx, b, update)

			attrs := []any{"type", updateType, "update_id", update.ID, "duration", time.Since(start)}
			if c := CallerFromUpdate(update); c != nil {
				attrs = append(attrs, "user_id", c.UserID, "chat_id", c.ChatID)
			}
			slog.Debug("update processed", attrs...)
		}
	}
}

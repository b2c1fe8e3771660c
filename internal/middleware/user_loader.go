package middleware

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ctxKey string

const CallerKey ctxKey = "caller"

// Caller identifies who sent the update being handled.
type Caller struct {
	UserID    string
	ChatID    int64
	FirstName string
	Private   bool
}

// GetCaller extracts the caller from context.
func GetCaller(ctx context.Context) *Caller {
	c, ok := ctx.Value(CallerKey).(*Caller)
	if !ok {
		return nil
	}
	return c
}

// WithCaller stores c in ctx.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, CallerKey, c)
}

// CallerFromUpdate reads the sender of a message or callback query.
func CallerFromUpdate(update *models.Update) *Caller {
	var from *models.User
	var chat *models.Chat

	if update.Message != nil {
		from = update.Message.From
		chat = &update.Message.Chat
	} else if update.CallbackQuery != nil {
		from = &update.CallbackQuery.From
		if update.CallbackQuery.Message.Message != nil {
			chat = &update.CallbackQuery.Message.Message.Chat
		}
	}
	if from == nil {
		return nil
	}

	c := &Caller{
		UserID:    strconv.FormatInt(from.ID, 10),
		ChatID:    from.ID,
		FirstName: from.FirstName,
		Private:   true,
	}
	if chat != nil {
		c.ChatID = chat.ID
		c.Private = chat.Type == models.ChatTypePrivate
	}
	return c
}

// Sender returns middleware that puts the platform user into context.
// Updates without a sender pass through untouched.
func Sender() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if c := CallerFromUpdate(update); c != nil {
				ctx = WithCaller(ctx, c)
			}
			next(ctx, b, update)
		}
	}
}

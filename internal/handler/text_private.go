package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/middleware"
	"github.com/michikitagawa/ojohoe/internal/service"
	tg "github.com/michikitagawa/ojohoe/internal/telegram"
)

// HandleText runs a consultation for a private text message. Other updates are ignored.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat.Type != models.ChatTypePrivate {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		return
	}
	if strings.TrimSpace(msg.Text) == subscribeKeyword {
		h.handleSubscribe(ctx, b, update)
		return
	}

	c := middleware.GetCaller(ctx)
	if c == nil {
		return
	}

	stopTyping := tg.StartTyping(ctx, h.sender, c.ChatID)
	out, err := h.consult.HandleMessage(ctx, service.Inbound{
		UserID:         c.UserID,
		ConversationID: domain.DefaultConversationID,
		Text:           msg.Text,
	})
	stopTyping()

	if err != nil {
		slog.Error("handle consultation", "error", err, "user_id", c.UserID)
		h.ops.LogError(err, "consultation user "+c.UserID)
		out.Reply = service.TextAIError
	}
	if out.Reply == "" {
		return
	}

	replyTo := msg.ID
	if err := tg.SendLongMessage(ctx, h.sender, c.ChatID, out.Reply, &replyTo); err != nil {
		slog.Error("send consultation reply", "error", err, "user_id", c.UserID, "chat_id", c.ChatID)
	}
}

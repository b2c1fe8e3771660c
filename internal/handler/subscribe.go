package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/middleware"
	tg "github.com/michikitagawa/ojohoe/internal/telegram"
)

const (
	textSubscribe = "⭐ 無制限プラン\n\n" +
		"回数制限なしでいつでも相談できます。\n" +
		"月額: ¥%s / 年額: ¥%s\n\n" +
		"下のボタンからお手続きください。"
	textCheckoutDisabled = "現在オンライン決済を受け付けておりません。しばらくしてからお試しください。"
	textCheckoutFailed   = "決済ページを作成できませんでした。時間をおいて再度お試しください。"
)

var planLabels = map[domain.SubscriptionType]string{
	domain.SubscriptionMonthly: "月額プラン",
	domain.SubscriptionYearly:  "年額プラン",
}

func (h *Handler) handleSubscribe(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c := middleware.GetCaller(ctx)
	if update.Message == nil || c == nil || !c.Private {
		return
	}

	var buttons []models.InlineKeyboardButton
	for _, plan := range []domain.SubscriptionType{domain.SubscriptionMonthly, domain.SubscriptionYearly} {
		url, err := h.checkout.Link(ctx, c.UserID, plan)
		if errors.Is(err, domain.ErrCheckoutDisabled) {
			h.reply(ctx, c, textCheckoutDisabled)
			return
		}
		if err != nil {
			slog.Error("create checkout link", "error", err, "user_id", c.UserID, "plan", plan)
			continue
		}
		label := fmt.Sprintf("%s ¥%s", planLabels[plan], h.cfg.PlanPrice(plan).StringFixed(0))
		buttons = append(buttons, tg.URLButton(label, url))
	}

	if len(buttons) == 0 {
		h.reply(ctx, c, textCheckoutFailed)
		return
	}

	text := fmt.Sprintf(textSubscribe,
		h.cfg.PlanPrice(domain.SubscriptionMonthly).StringFixed(0),
		h.cfg.PlanPrice(domain.SubscriptionYearly).StringFixed(0))
	if err := tg.SendText(ctx, h.sender, c.ChatID, text, tg.Column(buttons...)); err != nil {
		slog.Error("send subscribe options", "error", err, "user_id", c.UserID)
	}
}

func (h *Handler) reply(ctx context.Context, c *middleware.Caller, text string) {
	if err := tg.SendText(ctx, h.sender, c.ChatID, text, nil); err != nil {
		slog.Error("send reply", "error", err, "user_id", c.UserID)
	}
}

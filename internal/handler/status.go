package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/middleware"
)

const textStatusFailed = "ご利用状況を取得できませんでした。"

func (h *Handler) handleStatus(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c := middleware.GetCaller(ctx)
	if update.Message == nil || c == nil || !c.Private {
		return
	}

	u, err := h.status.Status(ctx, c.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		u, err = &domain.User{ID: c.UserID}, nil
	}
	if err != nil {
		slog.Error("load status", "error", err, "user_id", c.UserID)
		h.reply(ctx, c, textStatusFailed)
		return
	}

	h.reply(ctx, c, formatStatus(u, h.status.Now()))
}

func formatStatus(u *domain.User, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("📊 ご利用状況\n\n")

	if u.IsPaid && !u.IsSubscriptionExpired(now) {
		plan := planLabels[u.SubscriptionType]
		if plan == "" {
			plan = "有料プラン"
		}
		fmt.Fprintf(&sb, "プラン: %s\n", plan)
		fmt.Fprintf(&sb, "有効期限: %s (UTC)\n", u.SubscriptionEnd.UTC().Format("2006-01-02"))
		sb.WriteString("相談回数: 無制限")
		return sb.String()
	}

	sb.WriteString("プラン: 無料\n")
	if u.ConsultedOn(now) {
		sb.WriteString("本日の無料相談: 使用済み (0:00 UTC にリセット)")
	} else {
		sb.WriteString("本日の無料相談: 利用可能")
	}
	return sb.String()
}

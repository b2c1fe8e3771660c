package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/michikitagawa/ojohoe/internal/middleware"
	"github.com/michikitagawa/ojohoe/internal/telegram"
)

const welcomeFormat = "👋 こんにちは、%sさん！\n\n" +
	"どんなお悩みでも気軽に話しかけてください。\n" +
	"無料プランでは1日1回まで相談できます。\n\n" +
	"📋 コマンド:\n" +
	"/subscribe — 無制限プランに登録\n" +
	"/status — ご利用状況\n\n" +
	"メッセージを送るだけで相談が始まります！"

func (h *Handler) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c := middleware.GetCaller(ctx)
	if update.Message == nil || c == nil || !c.Private {
		return
	}

	name := c.FirstName
	if name == "" {
		name = "ゲスト"
	}
	if err := telegram.SendText(ctx, h.sender, c.ChatID, fmt.Sprintf(welcomeFormat, name), nil); err != nil {
		slog.Error("send welcome", "error", err, "user_id", c.UserID)
	}
}

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/michikitagawa/ojohoe/internal/config"
)

// OpsLogger mirrors notable events into topics of an operator chat.
type OpsLogger struct {
	sender Sender
	cfg    *config.Config
}

func NewOpsLogger(s Sender, cfg *config.Config) *OpsLogger {
	return &OpsLogger{sender: s, cfg: cfg}
}

type LogType string

const (
	LogTypeError        LogType = "error"
	LogTypeSubscription LogType = "subscription"
)

func (l *OpsLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *OpsLogger) LogError(err error, where string) {
	l.Log(LogTypeError, fmt.Sprintf("❌ Error\n\nContext: %s\nError: %s\nTime: %s",
		where, err.Error(), time.Now().UTC().Format(time.DateTime)))
}

func (l *OpsLogger) LogSubscription(userID, change string) {
	l.Log(LogTypeSubscription, fmt.Sprintf("⭐ Subscription %s\n\nUser: %s", change, userID))
}

func (l *OpsLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeSubscription:
		return l.cfg.LogTopicSubscription
	default:
		return 0
	}
}

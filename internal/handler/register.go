package handler

import (
	"github.com/go-telegram/bot"
)

const subscribeKeyword = "サブスク"

// Registrar is the part of *bot.Bot used to route updates.
type Registrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
}

// Register routes commands. Plain text arrives through the bot's default handler, see HandleText.
func (h *Handler) Register(r Registrar) {
	r.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	r.RegisterHandler(bot.HandlerTypeMessageText, "/subscribe", bot.MatchTypePrefix, h.handleSubscribe)
	r.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, h.handleStatus)
	r.RegisterHandler(bot.HandlerTypeMessageText, subscribeKeyword, bot.MatchTypeExact, h.handleSubscribe)
}

package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/service"
)

type fakeSender struct {
	mu           sync.Mutex
	sent         []*bot.SendMessageParams
	rejectMarkup bool
	err          error
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.rejectMarkup && p.ParseMode != "" {
		return nil, errors.New("can't parse entities")
	}
	cp := *p
	f.sent = append(f.sent, &cp)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeSender) SendChatAction(context.Context, *bot.SendChatActionParams) (bool, error) {
	return true, nil
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	parts := SplitMessage(strings.Repeat("あ", 25), 10)
	assert.Equal(t, []string{strings.Repeat("あ", 10), strings.Repeat("あ", 10), strings.Repeat("あ", 5)}, parts)

	text := strings.Repeat("a", 7) + "\n" + strings.Repeat("b", 7)
	assert.Equal(t, []string{strings.Repeat("a", 7) + "\n", strings.Repeat("b", 7)}, SplitMessage(text, 10))
}

func TestFixMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"use `go test", "use `go test`"},
		{"```go\nx := 1", "```go\nx := 1\n```"},
		{"`a` and `b`", "`a` and `b`"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FixMarkdown(tt.in))
	}
}

func TestSendLongMessage(t *testing.T) {
	s := &fakeSender{}
	reply := 7
	text := strings.Repeat("x", config.MaxTelegramMessageLen+10)

	require.NoError(t, SendLongMessage(context.Background(), s, 42, text, &reply))
	require.Len(t, s.sent, 2)
	assert.Equal(t, 7, s.sent[0].ReplyParameters.MessageID)
	assert.Nil(t, s.sent[1].ReplyParameters)
	assert.Equal(t, models.ParseModeMarkdownV1, s.sent[0].ParseMode)
}

func TestSendLongMessage_PlainFallback(t *testing.T) {
	s := &fakeSender{rejectMarkup: true}
	require.NoError(t, SendLongMessage(context.Background(), s, 42, "*broken", nil))
	require.Len(t, s.sent, 1)
	assert.Equal(t, models.ParseMode(""), s.sent[0].ParseMode)

	s = &fakeSender{err: errors.New("blocked")}
	assert.Error(t, SendLongMessage(context.Background(), s, 42, "hi", nil))
}

func TestNotifier(t *testing.T) {
	s := &fakeSender{}
	cfg := &config.Config{LogTelegramChatID: -100, LogTopicSubscription: 3}
	n := NewNotifier(s, NewOpsLogger(s, cfg))

	require.NoError(t, n.SubscriptionActivated(context.Background(), "12345"))
	require.Len(t, s.sent, 2)
	assert.Equal(t, int64(-100), s.sent[0].ChatID)
	assert.Equal(t, 3, s.sent[0].MessageThreadID)
	assert.Equal(t, int64(12345), s.sent[1].ChatID)
	assert.Equal(t, service.TextSubscriptionActivated, s.sent[1].Text)

	assert.Error(t, n.SubscriptionCancelled(context.Background(), "not-a-chat"))
}

func TestOpsLogger_Disabled(t *testing.T) {
	s := &fakeSender{}
	NewOpsLogger(s, &config.Config{}).LogError(errors.New("x"), "test")
	NewOpsLogger(s, &config.Config{LogTelegramChatID: -1}).LogError(errors.New("x"), "no topic")

	var nilLogger *OpsLogger
	nilLogger.LogSubscription("1", "activated")

	assert.Empty(t, s.sent)
}

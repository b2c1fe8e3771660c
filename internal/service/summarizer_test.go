package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSummarizer(t *testing.T, c Completer, queue int) (*Summarizer, *ConversationService) {
	t.Helper()
	store := memstore.New()
	conv := NewConversationService(store, store, tickingClock(gateNow))
	ai := NewAIService(c, testPromptBook(t), conv)
	return NewSummarizer(conv, ai, queue), conv
}

func TestSummarizer_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("below threshold does nothing", func(t *testing.T) {
		c := &mockCompleter{}
		s, conv := newTestSummarizer(t, c, 1)
		addMessages(t, s.conv, 49)

		created, err := s.Process(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Empty(t, c.Calls)

		latest, err := conv.LatestSummary(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("first summary", func(t *testing.T) {
		c := &mockCompleter{}
		c.On("Complete", mock.Anything, kindSummary, mock.Anything, mock.Anything, mock.Anything).Return("S1", nil).Once()
		s, conv := newTestSummarizer(t, c, 1)
		addMessages(t, conv, 50)

		created, err := s.Process(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.True(t, created)

		latest, err := conv.LatestSummary(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "S1", latest.Content)
		c.AssertExpectations(t)
	})

	t.Run("later summaries are merged with the previous one", func(t *testing.T) {
		c := &mockCompleter{}
		c.On("Complete", mock.Anything, kindSummary, mock.Anything, mock.Anything, mock.Anything).Return("S2", nil).Once()
		var combinePrompt string
		c.On("Complete", mock.Anything, kindCombine, mock.MatchedBy(func(msgs []ChatMessage) bool {
			return len(msgs) == 1
		}), mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			combinePrompt = args.Get(2).([]ChatMessage)[0].Content
		}).Return("S1+S2", nil).Once()
		s, conv := newTestSummarizer(t, c, 1)

		addMessages(t, conv, 10)
		_, err := conv.AddSummary(ctx, "u", domain.DefaultConversationID, "S1", time.Time{})
		require.NoError(t, err)
		addMessages(t, conv, 50)

		created, err := s.Process(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.True(t, created)

		latest, err := conv.LatestSummary(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.Equal(t, "S1+S2", latest.Content)
		assert.Contains(t, combinePrompt, "要約1:\nS1")
		assert.Contains(t, combinePrompt, "要約2:\nS2")

		again, err := conv.ShouldSummarize(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.False(t, again)
		c.AssertExpectations(t)
	})

	t.Run("messages stored while summarizing stay in the next window", func(t *testing.T) {
		store := memstore.New()
		conv := NewConversationService(store, store, tickingClock(gateNow))
		c := completerFunc(func(ctx context.Context, kind string, _ []ChatMessage) (string, error) {
			if kind == kindSummary {
				_, err := conv.AddMessage(ctx, "u", domain.DefaultConversationID, domain.RoleUser, "LATE", "USER")
				require.NoError(t, err)
			}
			return "S1", nil
		})
		s := NewSummarizer(conv, NewAIService(c, testPromptBook(t), conv), 1)
		addMessages(t, conv, 50)

		created, err := s.Process(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		require.True(t, created)

		latest, err := conv.LatestSummary(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		next, err := conv.GetMessagesSince(ctx, "u", domain.DefaultConversationID, latest.CreatedAt)
		require.NoError(t, err)
		require.Len(t, next, 1)
		assert.Equal(t, "LATE", next[0].Content)
	})

	t.Run("completion errors store nothing", func(t *testing.T) {
		c := &mockCompleter{}
		c.On("Complete", mock.Anything, kindSummary, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down"))
		s, conv := newTestSummarizer(t, c, 1)
		addMessages(t, conv, 50)

		created, err := s.Process(ctx, "u", domain.DefaultConversationID)
		assert.Error(t, err)
		assert.False(t, created)

		latest, err := conv.LatestSummary(ctx, "u", domain.DefaultConversationID)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})
}

func TestSummarizer_EnqueueNeverBlocks(t *testing.T) {
	s, _ := newTestSummarizer(t, &mockCompleter{}, 1)

	done := make(chan struct{})
	go func() {
		s.Enqueue("a", "default")
		s.Enqueue("a", "default") // already pending
		s.Enqueue("b", "default") // queue full, dropped
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}
	assert.Len(t, s.jobs, 1)
}

func TestSummarizer_Run(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, kindSummary, mock.Anything, mock.Anything, mock.Anything).Return("S", nil).Once()
	s, conv := newTestSummarizer(t, c, 4)
	addMessages(t, conv, 50)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	s.Enqueue("u", domain.DefaultConversationID)
	assert.Eventually(t, func() bool {
		latest, err := conv.LatestSummary(context.Background(), "u", domain.DefaultConversationID)
		return err == nil && latest != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
}

type completerFunc func(ctx context.Context, kind string, messages []ChatMessage) (string, error)

func (f completerFunc) Complete(ctx context.Context, kind string, messages []ChatMessage, _ float64, _ int) (string, error) {
	return f(ctx, kind, messages)
}

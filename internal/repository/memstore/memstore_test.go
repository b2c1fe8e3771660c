package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, created, err := s.GetOrCreate(ctx, "1", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "1", u.ID)

	_, created, err = s.GetOrCreate(ctx, "1", now)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = s.Get(ctx, "2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, s.SetDisplayName(ctx, "2", "x"), domain.ErrUserNotFound)

	require.NoError(t, s.SetDisplayName(ctx, "1", "ゆい"))
	u, err = s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ゆい", u.DisplayName)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("failed fn writes nothing", func(t *testing.T) {
		s := New()
		boom := errors.New("boom")
		_, err := s.Update(ctx, "1", now, func(u *domain.User, created bool) error {
			assert.True(t, created)
			u.IsPaid = true
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.Get(ctx, "1")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("returned user is a copy", func(t *testing.T) {
		s := New()
		end := now.Add(time.Hour)
		u, err := s.Update(ctx, "1", now, func(u *domain.User, _ bool) error {
			u.SubscriptionEnd = &end
			return nil
		})
		require.NoError(t, err)
		*u.SubscriptionEnd = now.Add(48 * time.Hour)

		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, end, *got.SubscriptionEnd)
	})

	t.Run("timestamps normalized to utc", func(t *testing.T) {
		s := New()
		tokyo := time.FixedZone("JST", 9*60*60)
		local := now.In(tokyo)
		_, err := s.Update(ctx, "1", now, func(u *domain.User, _ bool) error {
			u.LastConsultationDate = &local
			return nil
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, time.UTC, got.LastConsultationDate.Location())
	})

	t.Run("concurrent", func(t *testing.T) {
		s := New()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Update(ctx, "1", now, func(u *domain.User, _ bool) error {
					u.ConsultationCount++
					return nil
				})
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 50, got.ConsultationCount)
	})
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s := New()

	// inserted out of order on purpose
	for _, i := range []int{2, 0, 1, 4, 3} {
		require.NoError(t, s.AddMessage(ctx, &domain.Message{
			ID:             string(rune('0' + i)),
			UserID:         "1",
			ConversationID: domain.DefaultConversationID,
			Role:           domain.RoleUser,
			Content:        string(rune('a' + i)),
			Timestamp:      now.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := s.RecentMessages(ctx, "1", domain.DefaultConversationID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"e", "d", "c"}, bodies(recent))

	since, err := s.MessagesSince(ctx, "1", domain.DefaultConversationID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "e"}, bodies(since))

	n, err := s.CountMessagesSince(ctx, "1", domain.DefaultConversationID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	other, err := s.RecentMessages(ctx, "1", "other", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := range 7 {
		require.NoError(t, s.AddSummary(ctx, &domain.Summary{
			ID:             string(rune('0' + i)),
			UserID:         "1",
			ConversationID: domain.DefaultConversationID,
			Content:        string(rune('a' + i)),
			CreatedAt:      now.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := s.RecentSummaries(ctx, "1", domain.DefaultConversationID, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "g", got[0].Content)
	assert.Equal(t, "c", got[4].Content)
}

func bodies(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].Body()
	}
	return out
}

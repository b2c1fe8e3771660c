package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/michikitagawa/ojohoe"
	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dsn, ojohoe.MigrationsFS))

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgres(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)

	users := NewUserRepo(pool)
	messages := NewMessageRepo(pool)
	summaries := NewSummaryRepo(pool)

	t.Run("get or create", func(t *testing.T) {
		u, created, err := users.GetOrCreate(ctx, "u-create", now)
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, u.IsPaid)
		assert.Equal(t, now, u.CreatedAt)

		_, created, err = users.GetOrCreate(ctx, "u-create", now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := users.Get(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("update round trip", func(t *testing.T) {
		end := now.AddDate(0, 0, 30)
		day := domain.StartOfDayUTC(now)
		_, err := users.Update(ctx, "u-update", now, func(u *domain.User, created bool) error {
			assert.True(t, created)
			u.IsPaid = true
			u.SubscriptionType = domain.SubscriptionMonthly
			u.SubscriptionEnd = &end
			u.SubscriptionID = "sub_1"
			u.PaymentCustomerID = "cus_1"
			u.ConsultationCount = 3
			u.LastConsultationDate = &day
			return nil
		})
		require.NoError(t, err)

		got, err := users.Get(ctx, "u-update")
		require.NoError(t, err)
		assert.Equal(t, &domain.User{
			ID:                   "u-update",
			IsPaid:               true,
			ConsultationCount:    3,
			LastConsultationDate: &day,
			SubscriptionType:     domain.SubscriptionMonthly,
			SubscriptionEnd:      &end,
			SubscriptionID:       "sub_1",
			PaymentCustomerID:    "cus_1",
			CreatedAt:            now,
			UpdatedAt:            now,
		}, got)
	})

	t.Run("update error rolls back creation", func(t *testing.T) {
		_, err := users.Update(ctx, "u-rollback", now, func(u *domain.User, created bool) error {
			return domain.ErrUserNotFound
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = users.Get(ctx, "u-rollback")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("concurrent updates serialize", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := users.Update(ctx, "u-race", now, func(u *domain.User, _ bool) error {
					u.ConsultationCount++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := users.Get(ctx, "u-race")
		require.NoError(t, err)
		assert.Equal(t, 10, got.ConsultationCount)
	})

	t.Run("display name", func(t *testing.T) {
		_, _, err := users.GetOrCreate(ctx, "u-name", now)
		require.NoError(t, err)
		require.NoError(t, users.SetDisplayName(ctx, "u-name", "さくら"))

		got, err := users.Get(ctx, "u-name")
		require.NoError(t, err)
		assert.Equal(t, "さくら", got.DisplayName)

		assert.True(t, errors.Is(users.SetDisplayName(ctx, "nobody", "x"), domain.ErrUserNotFound))
	})

	t.Run("messages", func(t *testing.T) {
		for i := range 5 {
			require.NoError(t, messages.AddMessage(ctx, &domain.Message{
				ID:             uuid.NewString(),
				UserID:         "u-msg",
				ConversationID: domain.DefaultConversationID,
				Role:           domain.RoleUser,
				Content:        string(rune('a' + i)),
				Sender:         "USER",
				Timestamp:      now.Add(time.Duration(i) * time.Minute),
			}))
		}

		recent, err := messages.RecentMessages(ctx, "u-msg", domain.DefaultConversationID, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "e", recent[0].Content)
		assert.Equal(t, "d", recent[1].Content)

		all, err := messages.MessagesSince(ctx, "u-msg", domain.DefaultConversationID, time.Time{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "a", all[0].Content)

		since, err := messages.MessagesSince(ctx, "u-msg", domain.DefaultConversationID, now.Add(2*time.Minute))
		require.NoError(t, err)
		require.Len(t, since, 2)
		assert.Equal(t, "d", since[0].Content)

		n, err := messages.CountMessagesSince(ctx, "u-msg", domain.DefaultConversationID, now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = messages.CountMessagesSince(ctx, "u-msg", "other", time.Time{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("summaries", func(t *testing.T) {
		for i := range 3 {
			require.NoError(t, summaries.AddSummary(ctx, &domain.Summary{
				ID:             uuid.NewString(),
				UserID:         "u-sum",
				ConversationID: domain.DefaultConversationID,
				Content:        string(rune('x' + i)),
				CreatedAt:      now.Add(time.Duration(i) * time.Hour),
			}))
		}

		got, err := summaries.RecentSummaries(ctx, "u-sum", domain.DefaultConversationID, 5)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "z", got[0].Content)
		assert.Equal(t, now.Add(2*time.Hour), got[0].CreatedAt)
	})
}

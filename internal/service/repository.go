package service

import (
	"context"
	"time"

	"github.com/michikitagawa/ojohoe/internal/domain"
)

// UserRepository stores users. Update runs fn inside a store transaction, creating the
// user when absent (created is then true); an error from fn aborts the write.
type UserRepository interface {
	GetOrCreate(ctx context.Context, id string, now time.Time) (*domain.User, bool, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, now time.Time, fn func(u *domain.User, created bool) error) (*domain.User, error)
	SetDisplayName(ctx context.Context, id, name string) error
}

type MessageRepository interface {
	AddMessage(ctx context.Context, m *domain.Message) error
	RecentMessages(ctx context.Context, userID, convID string, limit int) ([]domain.Message, error)
	MessagesSince(ctx context.Context, userID, convID string, since time.Time) ([]domain.Message, error)
	CountMessagesSince(ctx context.Context, userID, convID string, since time.Time) (int, error)
}

type SummaryRepository interface {
	AddSummary(ctx context.Context, s *domain.Summary) error
	RecentSummaries(ctx context.Context, userID, convID string, limit int) ([]domain.Summary, error)
}

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

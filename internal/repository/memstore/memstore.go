// Package memstore keeps users, messages and summaries in process memory. It backs
// local development and the service tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/michikitagawa/ojohoe/internal/domain"
)

type convKey struct {
	userID string
	convID string
}

type Store struct {
	mu        sync.Mutex
	users     map[string]domain.User
	messages  map[convKey][]domain.Message
	summaries map[convKey][]domain.Summary
}

func New() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		messages:  make(map[convKey][]domain.Message),
		summaries: make(map[convKey][]domain.Summary),
	}
}

func cloneUser(u domain.User) *domain.User {
	u.LastConsultationDate = domain.UTCPtr(u.LastConsultationDate)
	u.SubscriptionEnd = domain.UTCPtr(u.SubscriptionEnd)
	return &u
}

func (s *Store) GetOrCreate(_ context.Context, id string, now time.Time) (*domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return cloneUser(u), false, nil
	}
	u := domain.NewUser(id, now)
	s.users[id] = *u
	return cloneUser(*u), true, nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// Update applies fn under the store lock. Nothing is written when fn fails.
func (s *Store) Update(_ context.Context, id string, now time.Time, fn func(u *domain.User, created bool) error) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u *domain.User
	existing, ok := s.users[id]
	if ok {
		u = cloneUser(existing)
	} else {
		u = domain.NewUser(id, now)
	}

	if err := fn(u, !ok); err != nil {
		return nil, err
	}
	u.UpdatedAt = now.UTC()
	u.UTC()
	s.users[id] = *u
	return cloneUser(*u), nil
}

func (s *Store) SetDisplayName(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DisplayName = name
	s.users[id] = u
	return nil
}

func (s *Store) AddMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := convKey{m.UserID, m.ConversationID}
	msg := *m
	msg.Timestamp = msg.Timestamp.UTC()
	msgs := append(s.messages[k], msg)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	s.messages[k] = msgs
	return nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *Store) RecentMessages(_ context.Context, userID, convID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[convKey{userID, convID}]
	out := make([]domain.Message, 0, min(limit, len(msgs)))
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

// MessagesSince returns messages strictly after since, oldest first.
func (s *Store) MessagesSince(_ context.Context, userID, convID string, since time.Time) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Message
	for _, m := range s.messages[convKey{userID, convID}] {
		if since.IsZero() || m.Timestamp.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CountMessagesSince(ctx context.Context, userID, convID string, since time.Time) (int, error) {
	msgs, err := s.MessagesSince(ctx, userID, convID, since)
	return len(msgs), err
}

func (s *Store) AddSummary(_ context.Context, sum *domain.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := convKey{sum.UserID, sum.ConversationID}
	v := *sum
	v.CreatedAt = v.CreatedAt.UTC()
	list := append(s.summaries[k], v)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	s.summaries[k] = list
	return nil
}

// RecentSummaries returns up to limit summaries, newest first.
func (s *Store) RecentSummaries(_ context.Context, userID, convID string, limit int) ([]domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := slices.Clone(s.summaries[convKey{userID, convID}])
	slices.Reverse(list)
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

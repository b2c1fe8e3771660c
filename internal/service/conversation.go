package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

// ConversationService is the message log and summary log of each (user, conversation).
type ConversationService struct {
	messages  MessageRepository
	summaries SummaryRepository
	now       Clock
}

func NewConversationService(messages MessageRepository, summaries SummaryRepository, clock Clock) *ConversationService {
	if clock == nil {
		clock = utcNow
	}
	return &ConversationService{messages: messages, summaries: summaries, now: clock}
}

func (s *ConversationService) AddMessage(ctx context.Context, userID, convID string, role domain.Role, content, sender string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: convID,
		Role:           role,
		Content:        content,
		Sender:         sender,
		Timestamp:      s.now().UTC(),
	}
	if err := s.messages.AddMessage(ctx, m); err != nil {
		return nil, persistErr("add message", err)
	}
	return m, nil
}

// GetRecentMessages returns the latest limit messages in chronological order.
func (s *ConversationService) GetRecentMessages(ctx context.Context, userID, convID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = config.RecentMessagesLimit
	}
	msgs, err := s.messages.RecentMessages(ctx, userID, convID, limit)
	if err != nil {
		return nil, persistErr("get recent messages", err)
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// GetRecentSummaries returns the latest limit summaries, newest first.
func (s *ConversationService) GetRecentSummaries(ctx context.Context, userID, convID string, limit int) ([]domain.Summary, error) {
	if limit <= 0 {
		limit = config.RecentSummariesLimit
	}
	out, err := s.summaries.RecentSummaries(ctx, userID, convID, limit)
	if err != nil {
		return nil, persistErr("get recent summaries", err)
	}
	return out, nil
}

// LatestSummary returns nil when the conversation has never been summarized.
func (s *ConversationService) LatestSummary(ctx context.Context, userID, convID string) (*domain.Summary, error) {
	list, err := s.GetRecentSummaries(ctx, userID, convID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// GetMessagesSince returns messages strictly after since in chronological order. A
// zero since means the start of the conversation.
func (s *ConversationService) GetMessagesSince(ctx context.Context, userID, convID string, since time.Time) ([]domain.Message, error) {
	msgs, err := s.messages.MessagesSince(ctx, userID, convID, since)
	if err != nil {
		return nil, persistErr("get messages since", err)
	}
	return msgs, nil
}

// AddSummary stores a summary covering every message up to and including coveredUntil.
// The summary is stamped with coveredUntil so messages stored while it was being
// generated fall into the next window. A zero coveredUntil means now.
func (s *ConversationService) AddSummary(ctx context.Context, userID, convID, content string, coveredUntil time.Time) (*domain.Summary, error) {
	if coveredUntil.IsZero() {
		coveredUntil = s.now()
	}
	sum := &domain.Summary{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: convID,
		Content:        content,
		CreatedAt:      coveredUntil.UTC(),
	}
	if err := s.summaries.AddSummary(ctx, sum); err != nil {
		return nil, persistErr("add summary", err)
	}
	return sum, nil
}

// ShouldSummarize reports whether the messages since the latest summary (or the whole
// conversation, if none) have reached the summary window size.
func (s *ConversationService) ShouldSummarize(ctx context.Context, userID, convID string) (bool, error) {
	latest, err := s.LatestSummary(ctx, userID, convID)
	if err != nil {
		return false, err
	}

	var since time.Time
	if latest != nil {
		since = latest.CreatedAt
	}
	n, err := s.messages.CountMessagesSince(ctx, userID, convID, since)
	if err != nil {
		return false, persistErr("count messages", err)
	}
	return n >= config.MaxMessagesPerSummary, nil
}

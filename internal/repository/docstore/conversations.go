package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/michikitagawa/ojohoe/internal/domain"
)

type messageDoc struct {
	UserID         string    `firestore:"user_id"`
	ConversationID string    `firestore:"conversation_id"`
	Role           string    `firestore:"role"`
	Content        string    `firestore:"content"`
	Text           string    `firestore:"text,omitempty"`
	Sender         string    `firestore:"sender,omitempty"`
	Timestamp      time.Time `firestore:"created_at"`
}

type summaryDoc struct {
	UserID         string    `firestore:"user_id"`
	ConversationID string    `firestore:"conversation_id"`
	Content        string    `firestore:"content"`
	CreatedAt      time.Time `firestore:"created_at"`
}

func toMessageDoc(m *domain.Message) messageDoc {
	return messageDoc{
		UserID:         m.UserID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		Text:           m.Text,
		Sender:         m.Sender,
		Timestamp:      m.Timestamp.UTC(),
	}
}

// toDomain maps a stored message. Legacy documents may carry only text, with no role.
func (d messageDoc) toDomain(id string) domain.Message {
	role := domain.Role(d.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Message{
		ID:             id,
		UserID:         d.UserID,
		ConversationID: d.ConversationID,
		Role:           role,
		Content:        d.Content,
		Text:           d.Text,
		Sender:         d.Sender,
		Timestamp:      d.Timestamp.UTC(),
	}
}

func toSummaryDoc(sum *domain.Summary) summaryDoc {
	return summaryDoc{
		UserID:         sum.UserID,
		ConversationID: sum.ConversationID,
		Content:        sum.Content,
		CreatedAt:      sum.CreatedAt.UTC(),
	}
}

func (d summaryDoc) toDomain(id string) domain.Summary {
	return domain.Summary{
		ID:             id,
		UserID:         d.UserID,
		ConversationID: d.ConversationID,
		Content:        d.Content,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

func (s *Store) conversation(collection, userID, convID string) firestore.Query {
	return s.client.Collection(collection).
		Where("user_id", "==", userID).
		Where("conversation_id", "==", convID)
}

func (s *Store) AddMessage(ctx context.Context, m *domain.Message) error {
	_, err := s.client.Collection(messagesCollection).Doc(m.ID).Set(ctx, toMessageDoc(m))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *Store) RecentMessages(ctx context.Context, userID, convID string, limit int) ([]domain.Message, error) {
	q := s.conversation(messagesCollection, userID, convID).
		OrderBy("created_at", firestore.Desc).
		Limit(limit)
	return s.queryMessages(ctx, q)
}

// MessagesSince returns messages strictly after since, oldest first.
func (s *Store) MessagesSince(ctx context.Context, userID, convID string, since time.Time) ([]domain.Message, error) {
	q := s.conversation(messagesCollection, userID, convID)
	if !since.IsZero() {
		q = q.Where("created_at", ">", since.UTC())
	}
	return s.queryMessages(ctx, q.OrderBy("created_at", firestore.Asc))
}

func (s *Store) CountMessagesSince(ctx context.Context, userID, convID string, since time.Time) (int, error) {
	q := s.conversation(messagesCollection, userID, convID)
	if !since.IsZero() {
		q = q.Where("created_at", ">", since.UTC())
	}
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return aggregateCount(res, "all")
}

func aggregateCount(res firestore.AggregationResult, alias string) (int, error) {
	v, ok := res[alias].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count messages: unexpected aggregation result %T", res[alias])
	}
	return int(v.GetIntegerValue()), nil
}

func (s *Store) queryMessages(ctx context.Context, q firestore.Query) ([]domain.Message, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	out := make([]domain.Message, 0, len(docs))
	for _, snap := range docs {
		var d messageDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toDomain(snap.Ref.ID))
	}
	return out, nil
}

func (s *Store) AddSummary(ctx context.Context, sum *domain.Summary) error {
	_, err := s.client.Collection(summariesCollection).Doc(sum.ID).Set(ctx, toSummaryDoc(sum))
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// RecentSummaries returns up to limit summaries, newest first.
func (s *Store) RecentSummaries(ctx context.Context, userID, convID string, limit int) ([]domain.Summary, error) {
	docs, err := s.conversation(summariesCollection, userID, convID).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	out := make([]domain.Summary, 0, len(docs))
	for _, snap := range docs {
		var d summaryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode summary %s: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toDomain(snap.Ref.ID))
	}
	return out, nil
}

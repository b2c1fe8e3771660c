package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

const selectMessage = `SELECT id, user_id, conversation_id, role, content, text, sender, created_at FROM messages`

type MessageRepo struct {
	db *pgxpool.Pool
}

func NewMessageRepo(db *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) AddMessage(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx, `INSERT INTO messages (id, user_id, conversation_id, role, content, text, sender, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.UserID, m.ConversationID, string(m.Role), m.Content, m.Text, m.Sender, timeToTs(m.Timestamp))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages, newest first.
func (r *MessageRepo) RecentMessages(ctx context.Context, userID, convID string, limit int) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, selectMessage+`
WHERE user_id = $1 AND conversation_id = $2
ORDER BY created_at DESC
LIMIT $3`, userID, convID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	return collectMessages(rows)
}

// MessagesSince returns messages strictly after since, oldest first. A zero since
// returns the whole conversation.
func (r *MessageRepo) MessagesSince(ctx context.Context, userID, convID string, since time.Time) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, selectMessage+`
WHERE user_id = $1 AND conversation_id = $2 AND ($3::timestamptz IS NULL OR created_at > $3)
ORDER BY created_at ASC`, userID, convID, timeToTs(since))
	if err != nil {
		return nil, fmt.Errorf("query messages since: %w", err)
	}
	return collectMessages(rows)
}

func (r *MessageRepo) CountMessagesSince(ctx context.Context, userID, convID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM messages
WHERE user_id = $1 AND conversation_id = $2 AND ($3::timestamptz IS NULL OR created_at > $3)`,
		userID, convID, timeToTs(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var (
			m    domain.Message
			role string
			ts   pgtype.Timestamptz
		)
		if err := row.Scan(&m.ID, &m.UserID, &m.ConversationID, &role, &m.Content, &m.Text, &m.Sender, &ts); err != nil {
			return m, err
		}
		m.Role = domain.Role(role)
		m.Timestamp = tsToTime(ts)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return msgs, nil
}

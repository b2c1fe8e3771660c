package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

type SummaryRepo struct {
	db *pgxpool.Pool
}

func NewSummaryRepo(db *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{db: db}
}

func (r *SummaryRepo) AddSummary(ctx context.Context, s *domain.Summary) error {
	_, err := r.db.Exec(ctx, `INSERT INTO summaries (id, user_id, conversation_id, content, created_at)
VALUES ($1, $2, $3, $4, $5)`, s.ID, s.UserID, s.ConversationID, s.Content, timeToTs(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// RecentSummaries returns up to limit summaries, newest first.
func (r *SummaryRepo) RecentSummaries(ctx context.Context, userID, convID string, limit int) ([]domain.Summary, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, conversation_id, content, created_at FROM summaries
WHERE user_id = $1 AND conversation_id = $2
ORDER BY created_at DESC
LIMIT $3`, userID, convID, limit)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Summary, error) {
		var (
			s  domain.Summary
			ts pgtype.Timestamptz
		)
		if err := row.Scan(&s.ID, &s.UserID, &s.ConversationID, &s.Content, &ts); err != nil {
			return s, err
		}
		s.CreatedAt = tsToTime(ts)
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan summaries: %w", err)
	}
	return out, nil
}

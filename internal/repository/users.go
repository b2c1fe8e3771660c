package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

const selectUser = `SELECT id, is_paid, consultation_count, last_consultation_date,
	subscription_type, subscription_end, subscription_id, payment_customer_id,
	display_name, created_at, updated_at
FROM users`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u                   domain.User
		subType             string
		lastDate, subEnd    pgtype.Timestamptz
		createdAt, updateAt pgtype.Timestamptz
	)
	err := row.Scan(&u.ID, &u.IsPaid, &u.ConsultationCount, &lastDate,
		&subType, &subEnd, &u.SubscriptionID, &u.PaymentCustomerID,
		&u.DisplayName, &createdAt, &updateAt)
	if err != nil {
		return nil, err
	}
	u.SubscriptionType = domain.SubscriptionType(subType)
	u.LastConsultationDate = tsToTimePtr(lastDate)
	u.SubscriptionEnd = tsToTimePtr(subEnd)
	u.CreatedAt = tsToTime(createdAt)
	u.UpdatedAt = tsToTime(updateAt)
	return &u, nil
}

// insertIfAbsent creates a default user row and reports whether it did.
func insertIfAbsent(ctx context.Context, q execer, id string, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `INSERT INTO users (id, created_at, updated_at) VALUES ($1, $2, $2)
ON CONFLICT (id) DO NOTHING`, id, timeToTs(now))
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepo) GetOrCreate(ctx context.Context, id string, now time.Time) (*domain.User, bool, error) {
	created, err := insertIfAbsent(ctx, r.db, id, now)
	if err != nil {
		return nil, false, err
	}
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	return u, created, nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Update locks the user row (creating it first when absent), applies fn and writes the
// result back in one transaction. An error from fn rolls everything back, including
// the creation.
func (r *UserRepo) Update(ctx context.Context, id string, now time.Time, fn func(u *domain.User, created bool) error) (*domain.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := insertIfAbsent(ctx, tx, id, now)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(tx.QueryRow(ctx, selectUser+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	if err := fn(u, created); err != nil {
		return nil, err
	}
	u.UpdatedAt = now.UTC()

	_, err = tx.Exec(ctx, `UPDATE users SET
	is_paid = $2,
	consultation_count = $3,
	last_consultation_date = $4,
	subscription_type = $5,
	subscription_end = $6,
	subscription_id = $7,
	payment_customer_id = $8,
	display_name = $9,
	updated_at = $10
WHERE id = $1`,
		u.ID, u.IsPaid, u.ConsultationCount, timePtrToTs(u.LastConsultationDate),
		string(u.SubscriptionType), timePtrToTs(u.SubscriptionEnd), u.SubscriptionID,
		u.PaymentCustomerID, u.DisplayName, timeToTs(u.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return u.UTC(), nil
}

func (r *UserRepo) SetDisplayName(ctx context.Context, id, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET display_name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

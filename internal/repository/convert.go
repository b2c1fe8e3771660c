package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// tsToTime converts pgtype.Timestamptz to a UTC time.Time.
func tsToTime(ts pgtype.Timestamptz) time.Time {
	if ts.Valid {
		return ts.Time.UTC()
	}
	return time.Time{}
}

// tsToTimePtr converts pgtype.Timestamptz to a UTC *time.Time.
func tsToTimePtr(ts pgtype.Timestamptz) *time.Time {
	if ts.Valid {
		t := ts.Time.UTC()
		return &t
	}
	return nil
}

func timeToTs(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: !t.IsZero()}
}

func timePtrToTs(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

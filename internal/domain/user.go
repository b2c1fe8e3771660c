package domain

import (
	"time"
)

type SubscriptionType string

const (
	SubscriptionNone    SubscriptionType = ""
	SubscriptionMonthly SubscriptionType = "monthly"
	SubscriptionYearly  SubscriptionType = "yearly"
)

// ParsePlan maps a plan name to a subscription type.
func ParsePlan(s string) (SubscriptionType, error) {
	switch s {
	case "monthly", "month":
		return SubscriptionMonthly, nil
	case "yearly", "year":
		return SubscriptionYearly, nil
	default:
		return SubscriptionNone, ErrInvalidPlan
	}
}

type User struct {
	ID                   string
	IsPaid               bool
	ConsultationCount    int
	LastConsultationDate *time.Time
	SubscriptionType     SubscriptionType
	SubscriptionEnd      *time.Time
	SubscriptionID       string
	PaymentCustomerID    string
	DisplayName          string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewUser returns a first-contact user with default free-tier state.
func NewUser(id string, now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsSubscriptionExpired reports whether a paid user's subscription has run out at now.
// A paid record without an end date is treated as expired.
func (u *User) IsSubscriptionExpired(now time.Time) bool {
	if !u.IsPaid {
		return false
	}
	if u.SubscriptionEnd == nil {
		return true
	}
	return now.UTC().After(u.SubscriptionEnd.UTC())
}

// ConsultedOn reports whether the user's last free consultation falls on the same UTC
// calendar date as now.
func (u *User) ConsultedOn(now time.Time) bool {
	if u.LastConsultationDate == nil {
		return false
	}
	return SameUTCDate(*u.LastConsultationDate, now)
}

// ClearSubscription drops paid state, leaving the consultation counters alone.
func (u *User) ClearSubscription() {
	u.IsPaid = false
	u.SubscriptionType = SubscriptionNone
	u.SubscriptionEnd = nil
}

// UTC normalizes every timestamp on the record.
func (u *User) UTC() *User {
	u.LastConsultationDate = UTCPtr(u.LastConsultationDate)
	u.SubscriptionEnd = UTCPtr(u.SubscriptionEnd)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u
}

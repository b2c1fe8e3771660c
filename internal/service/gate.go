package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/metrics"
)

// CheckoutLinker produces a payment page URL for a plan.
type CheckoutLinker interface {
	Link(ctx context.Context, userID string, plan domain.SubscriptionType) (string, error)
}

// Gate decides whether a user may consult right now and owns every write to the
// user's subscription and quota state.
type Gate struct {
	users  UserRepository
	linker CheckoutLinker
	now    Clock
}

type GateOption func(*Gate)

func WithClock(c Clock) GateOption {
	return func(g *Gate) { g.now = c }
}

// WithCheckoutLinker lets expiry messages embed a renewal link.
func WithCheckoutLinker(l CheckoutLinker) GateOption {
	return func(g *Gate) { g.linker = l }
}

func NewGate(users UserRepository, opts ...GateOption) *Gate {
	g := &Gate{users: users, now: utcNow}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// decide is the pure decision table. expired reports a paid user whose subscription
// has run out and must be cleared.
func decide(u *domain.User, created bool, now time.Time) (d domain.Decision, expired bool) {
	switch {
	case created:
		return domain.Decision{Allow: true, Reason: domain.ReasonNewUser}, false
	case u.IsPaid && u.IsSubscriptionExpired(now):
		return domain.Decision{Allow: false, Reason: domain.ReasonSubscriptionExpired}, true
	case u.IsPaid:
		return domain.Decision{Allow: true, Reason: domain.ReasonMember}, false
	case u.ConsultedOn(now):
		return domain.Decision{Allow: false, Reason: domain.ReasonQuotaExceeded, Message: TextQuotaExceeded}, false
	default:
		return domain.Decision{Allow: true, Reason: domain.ReasonFreeSlotAvailable}, false
	}
}

func consume(u *domain.User, now time.Time) {
	u.ConsultationCount++
	day := domain.StartOfDayUTC(now)
	u.LastConsultationDate = &day
}

// Evaluate reports the decision without consuming quota. It still creates unknown
// users and clears expired subscriptions.
func (g *Gate) Evaluate(ctx context.Context, userID string) (domain.Decision, error) {
	now := g.now()

	u, created, err := g.users.GetOrCreate(ctx, userID, now)
	if err != nil {
		return domain.Decision{}, persistErr("get or create user", err)
	}

	d, expired := decide(u, created, now)
	if expired {
		_, err := g.users.Update(ctx, userID, now, func(u *domain.User, _ bool) error {
			if u.IsSubscriptionExpired(now) {
				u.ClearSubscription()
			}
			return nil
		})
		if err != nil {
			return domain.Decision{}, persistErr("clear expired subscription", err)
		}
		d.Message = g.expiredMessage(ctx, userID)
	}
	return d, nil
}

// Admit evaluates and, when an unpaid user is let through, consumes the daily free
// slot in the same transaction, so two concurrent messages cannot both take it.
func (g *Gate) Admit(ctx context.Context, userID string) (domain.Decision, error) {
	now := g.now()

	var (
		d       domain.Decision
		expired bool
	)
	_, err := g.users.Update(ctx, userID, now, func(u *domain.User, created bool) error {
		d, expired = decide(u, created, now)
		if expired {
			u.ClearSubscription()
		}
		if d.Allow && !u.IsPaid {
			consume(u, now)
		}
		return nil
	})
	if err != nil {
		return domain.Decision{}, persistErr("admit user", err)
	}

	if expired {
		d.Message = g.expiredMessage(ctx, userID)
	}
	metrics.GateDecisions.WithLabelValues(string(d.Reason)).Inc()
	slog.Debug("gate decision", "user_id", userID, "allow", d.Allow, "reason", d.Reason)
	return d, nil
}

// Consume records one free consultation for today.
func (g *Gate) Consume(ctx context.Context, userID string) error {
	now := g.now()
	_, err := g.users.Update(ctx, userID, now, func(u *domain.User, _ bool) error {
		consume(u, now)
		return nil
	})
	if err != nil {
		return persistErr("consume quota", err)
	}
	return nil
}

// Activate starts or renews a subscription. The end date is always computed from now,
// so replaying the same payment event leaves the state unchanged within a day.
func (g *Gate) Activate(ctx context.Context, userID string, plan domain.SubscriptionType, ref domain.SubscriptionRef) (*domain.User, error) {
	var days int
	switch plan {
	case domain.SubscriptionMonthly:
		days = config.MonthlySubscriptionDays
	case domain.SubscriptionYearly:
		days = config.YearlySubscriptionDays
	default:
		return nil, fmt.Errorf("activate %q: %w", plan, domain.ErrInvalidPlan)
	}

	now := g.now()
	end := now.AddDate(0, 0, days)
	u, err := g.users.Update(ctx, userID, now, func(u *domain.User, _ bool) error {
		u.IsPaid = true
		u.SubscriptionType = plan
		u.SubscriptionEnd = &end
		if ref.SubscriptionID != "" {
			u.SubscriptionID = ref.SubscriptionID
		}
		if ref.CustomerID != "" {
			u.PaymentCustomerID = ref.CustomerID
		}
		return nil
	})
	if err != nil {
		return nil, persistErr("activate subscription", err)
	}

	slog.Info("subscription activated", "user_id", userID, "plan", plan, "until", end)
	return u, nil
}

// Deactivate clears paid state. Unknown users are left uncreated and reported with
// domain.ErrUserNotFound.
func (g *Gate) Deactivate(ctx context.Context, userID string) (*domain.User, error) {
	u, err := g.users.Update(ctx, userID, g.now(), func(u *domain.User, created bool) error {
		if created {
			return domain.ErrUserNotFound
		}
		u.ClearSubscription()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, persistErr("deactivate subscription", err)
	}

	slog.Info("subscription deactivated", "user_id", userID)
	return u, nil
}

func (g *Gate) Status(ctx context.Context, userID string) (*domain.User, error) {
	u, err := g.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, persistErr("get user", err)
	}
	return u, nil
}

// Now exposes the gate's clock to presenters of Status.
func (g *Gate) Now() time.Time { return g.now() }

func (g *Gate) expiredMessage(ctx context.Context, userID string) string {
	if g.linker == nil {
		return TextSubscriptionExpiredNoLink
	}
	url, err := g.linker.Link(ctx, userID, domain.SubscriptionMonthly)
	if err != nil {
		slog.Warn("renewal link unavailable", "error", err, "user_id", userID)
		return TextSubscriptionExpiredNoLink
	}
	return subscriptionExpiredText(url)
}

package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

// SessionCreator creates Stripe checkout sessions. *session.Client satisfies it.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeSessionClient returns a checkout session client bound to secretKey.
func NewStripeSessionClient(secretKey string) *session.Client {
	return &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// CheckoutService builds subscription checkout links.
type CheckoutService struct {
	sessions SessionCreator
	cfg      *config.Config
	cache    *LinkCache
}

func NewCheckoutService(sessions SessionCreator, cfg *config.Config) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		cfg:      cfg,
		cache:    NewLinkCache(config.CheckoutLinkTTL),
	}
}

// Link returns a checkout URL for plan that carries userID back in the payment events.
func (s *CheckoutService) Link(ctx context.Context, userID string, plan domain.SubscriptionType) (string, error) {
	if !s.cfg.CheckoutEnabled() {
		return "", domain.ErrCheckoutDisabled
	}
	priceID := s.cfg.PriceID(plan)
	if priceID == "" {
		return "", fmt.Errorf("price for %q: %w", plan, domain.ErrInvalidPlan)
	}

	key := userID + ":" + string(plan)
	if url, ok := s.cache.Get(key); ok {
		return url, nil
	}

	ctx, cancel := context.WithTimeout(ctx, config.PaymentTimeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:         stripe.String(s.cfg.SuccessURL),
		CancelURL:          stripe.String(s.cfg.CancelURL),
		ClientReferenceID:  stripe.String(userID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": userID, "plan_type": string(plan)},
		},
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan_type", string(plan))
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", &ExternalAPIError{Service: "stripe", Err: fmt.Errorf("create checkout session: %w", err)}
	}

	s.cache.Set(key, sess.URL)
	return sess.URL, nil
}

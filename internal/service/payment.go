package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/metrics"
)

// Notifier pushes subscription changes to the user.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, userID string) error
	SubscriptionCancelled(ctx context.Context, userID string) error
}

// EventLog remembers processed webhook event ids.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type PaymentService struct {
	gate     *Gate
	cfg      *config.Config
	notifier Notifier
	events   EventLog
	validate *validator.Validate
}

// NewPaymentService wires payment event handling. notifier and events may be nil.
func NewPaymentService(gate *Gate, cfg *config.Config, notifier Notifier, events EventLog) *PaymentService {
	return &PaymentService{
		gate:     gate,
		cfg:      cfg,
		notifier: notifier,
		events:   events,
		validate: validator.New(),
	}
}

// ParseStripeEvent verifies the Stripe-Signature header and reduces the event to a
// PaymentEvent. Event types the gate does not care about yield nil, nil.
func (s *PaymentService) ParseStripeEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, &SignatureError{Source: "stripe", Err: err}
	}
	return NormalizeStripeEvent(event)
}

// NormalizeStripeEvent extracts the user and subscription fields from a verified event.
func NormalizeStripeEvent(event stripe.Event) (*domain.PaymentEvent, error) {
	ev := &domain.PaymentEvent{
		ID:   event.ID,
		Type: domain.PaymentEventType(event.Type),
	}
	if event.Data == nil {
		return nil, &ValidationError{Field: "data", Reason: "missing"}
	}

	switch ev.Type {
	case domain.EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, &ValidationError{Field: "data", Reason: fmt.Sprintf("decode checkout session: %v", err)}
		}
		ev.UserID = cs.ClientReferenceID
		if ev.UserID == "" {
			ev.UserID = cs.Metadata["user_id"]
		}
		if cs.Subscription != nil {
			ev.SubscriptionID = cs.Subscription.ID
		}
		if cs.Customer != nil {
			ev.CustomerID = cs.Customer.ID
		}
		if cs.LineItems != nil && len(cs.LineItems.Data) > 0 && cs.LineItems.Data[0].Price != nil {
			ev.PriceID = cs.LineItems.Data[0].Price.ID
		}
		ev.PlanHint = cs.Metadata["plan_type"]
		ev.Status = string(cs.Status)

	case domain.EventSubscriptionDeleted, domain.EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, &ValidationError{Field: "data", Reason: fmt.Sprintf("decode subscription: %v", err)}
		}
		ev.UserID = sub.Metadata["user_id"]
		ev.SubscriptionID = sub.ID
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			ev.PriceID = sub.Items.Data[0].Price.ID
		}
		ev.PlanHint = sub.Metadata["plan_type"]
		ev.Status = string(sub.Status)

	default:
		metrics.PaymentEvents.WithLabelValues(string(event.Type), metrics.OutcomeIgnored).Inc()
		return nil, nil
	}
	return ev, nil
}

// Validate checks the fields every event type needs.
func (s *PaymentService) Validate(ev *domain.PaymentEvent) error {
	if err := s.validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Reason: verrs[0].Tag()}
		}
		return &ValidationError{Reason: err.Error()}
	}
	if ev.Type == domain.EventCheckoutCompleted && ev.SubscriptionID == "" {
		return &ValidationError{Field: "SubscriptionID", Reason: "required"}
	}
	return nil
}

// Apply updates subscription state for ev. Returned errors mean the event should be
// redelivered. Already processed event ids are skipped.
func (s *PaymentService) Apply(ctx context.Context, ev *domain.PaymentEvent) error {
	if err := s.Validate(ev); err != nil {
		metrics.PaymentEvents.WithLabelValues(string(ev.Type), metrics.OutcomeInvalid).Inc()
		return err
	}

	if s.events != nil {
		seen, err := s.events.Seen(ctx, ev.ID)
		if err != nil {
			slog.Warn("payment event log unavailable", "error", err, "event_id", ev.ID)
		} else if seen {
			metrics.PaymentEvents.WithLabelValues(string(ev.Type), metrics.OutcomeDup).Inc()
			slog.Info("duplicate payment event skipped", "event_id", ev.ID, "type", ev.Type)
			return nil
		}
	}

	notify, err := s.apply(ctx, ev)
	if err != nil {
		metrics.PaymentEvents.WithLabelValues(string(ev.Type), metrics.OutcomeError).Inc()
		return err
	}
	metrics.PaymentEvents.WithLabelValues(string(ev.Type), metrics.OutcomeOK).Inc()

	if s.events != nil {
		if err := s.events.Mark(ctx, ev.ID); err != nil {
			slog.Warn("mark payment event", "error", err, "event_id", ev.ID)
		}
	}
	if notify != nil && s.notifier != nil {
		if err := notify(ctx, ev.UserID); err != nil {
			slog.Error("notify subscription change", "error", err, "user_id", ev.UserID, "type", ev.Type)
		}
	}
	return nil
}

func (s *PaymentService) apply(ctx context.Context, ev *domain.PaymentEvent) (func(context.Context, string) error, error) {
	ref := domain.SubscriptionRef{SubscriptionID: ev.SubscriptionID, CustomerID: ev.CustomerID}

	switch ev.Type {
	case domain.EventCheckoutCompleted:
		if _, err := s.gate.Activate(ctx, ev.UserID, s.plan(ev), ref); err != nil {
			return nil, err
		}
		return s.activated(), nil

	case domain.EventSubscriptionDeleted:
		if _, err := s.gate.Deactivate(ctx, ev.UserID); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				slog.Warn("cancellation for unknown user", "user_id", ev.UserID, "event_id", ev.ID)
				return nil, nil
			}
			return nil, err
		}
		return s.cancelled(), nil

	case domain.EventSubscriptionUpdated:
		switch stripe.SubscriptionStatus(ev.Status) {
		case stripe.SubscriptionStatusActive:
			_, err := s.gate.Activate(ctx, ev.UserID, s.plan(ev), ref)
			return nil, err
		case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid:
			_, err := s.gate.Deactivate(ctx, ev.UserID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, nil
			}
			return nil, err
		default:
			slog.Debug("subscription status ignored", "status", ev.Status, "user_id", ev.UserID)
			return nil, nil
		}
	}
	return nil, nil
}

// plan resolves the purchased plan from the price id, then the checkout metadata,
// defaulting to monthly.
func (s *PaymentService) plan(ev *domain.PaymentEvent) domain.SubscriptionType {
	if ev.PriceID == "" && ev.PlanHint != "" {
		if p, err := domain.ParsePlan(ev.PlanHint); err == nil {
			return p
		}
	}
	return s.cfg.PlanForPrice(ev.PriceID)
}

func (s *PaymentService) activated() func(context.Context, string) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.SubscriptionActivated
}

func (s *PaymentService) cancelled() func(context.Context, string) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.SubscriptionCancelled
}

package domain

type PaymentEventType string

const (
	EventCheckoutCompleted   PaymentEventType = "checkout.session.completed"
	EventSubscriptionDeleted PaymentEventType = "customer.subscription.deleted"
	EventSubscriptionUpdated PaymentEventType = "customer.subscription.updated"
)

// PaymentEvent is a payment-processor webhook reduced to the fields the gate needs.
type PaymentEvent struct {
	ID             string           `validate:"required"`
	Type           PaymentEventType `validate:"required"`
	UserID         string           `validate:"required"`
	SubscriptionID string
	CustomerID     string
	PriceID        string
	PlanHint       string // plan_type metadata, consulted when PriceID is absent
	Status         string
}

// SubscriptionRef carries processor-side identifiers recorded on activation.
type SubscriptionRef struct {
	SubscriptionID string
	CustomerID     string
}

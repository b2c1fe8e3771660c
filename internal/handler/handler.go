package handler

import (
	"context"
	"time"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/service"
	"github.com/michikitagawa/ojohoe/internal/telegram"
)

// Consulter answers one consultation message.
type Consulter interface {
	HandleMessage(ctx context.Context, in service.Inbound) (service.Outcome, error)
}

// StatusReader exposes subscription state for /status.
type StatusReader interface {
	Status(ctx context.Context, userID string) (*domain.User, error)
	Now() time.Time
}

// Handler holds all dependencies needed by command and message handlers.
type Handler struct {
	sender   telegram.Sender
	cfg      *config.Config
	consult  Consulter
	status   StatusReader
	checkout service.CheckoutLinker
	ops      *telegram.OpsLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Sender   telegram.Sender
	Cfg      *config.Config
	Consult  Consulter
	Status   StatusReader
	Checkout service.CheckoutLinker
	Ops      *telegram.OpsLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		sender:   deps.Sender,
		cfg:      deps.Cfg,
		consult:  deps.Consult,
		status:   deps.Status,
		checkout: deps.Checkout,
		ops:      deps.Ops,
	}
}

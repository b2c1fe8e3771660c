package httpserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/michikitagawa/ojohoe/internal/service"
)

const maxWebhookBody = 64 << 10

type ackResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StripeWebhook acknowledges Stripe deliveries. Only a bad signature or a failed
// state write is reported as an error so Stripe redelivers the latter.
type StripeWebhook struct {
	payments PaymentProcessor
}

func NewStripeWebhook(p PaymentProcessor) *StripeWebhook {
	return &StripeWebhook{payments: p}
}

func (h *StripeWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slog.With("request_id", middleware.GetReqID(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Error("read stripe webhook body", "error", err)
		respond(w, r, http.StatusBadRequest, "unreadable body")
		return
	}

	ev, err := h.payments.ParseStripeEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var sigErr *service.SignatureError
		if errors.As(err, &sigErr) {
			log.Warn("stripe signature rejected", "error", err)
			respond(w, r, http.StatusBadRequest, "invalid signature")
			return
		}
		log.Warn("stripe event dropped", "error", err)
		respond(w, r, http.StatusOK, "")
		return
	}
	if ev == nil {
		respond(w, r, http.StatusOK, "")
		return
	}

	if err := h.payments.Apply(r.Context(), ev); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			log.Warn("stripe event invalid", "error", err, "event_id", ev.ID, "type", ev.Type)
			respond(w, r, http.StatusOK, "")
			return
		}
		log.Error("apply stripe event", "error", err, "event_id", ev.ID, "type", ev.Type)
		respond(w, r, http.StatusInternalServerError, "processing failed")
		return
	}

	respond(w, r, http.StatusOK, "")
}

func respond(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	if msg == "" {
		render.JSON(w, r, ackResponse{Status: "ok"})
		return
	}
	render.JSON(w, r, ackResponse{Status: "error", Error: msg})
}

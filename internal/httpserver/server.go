package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// PaymentProcessor verifies and applies payment webhooks.
type PaymentProcessor interface {
	ParseStripeEvent(payload []byte, signature string) (*domain.PaymentEvent, error)
	Apply(ctx context.Context, ev *domain.PaymentEvent) error
}

type Deps struct {
	Payments PaymentProcessor
	// Telegram receives verified bot updates; nil in polling mode.
	Telegram      http.Handler
	WebhookSecret string
	Mode          string
}

type statusResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode,omitempty"`
	Time   string `json:"time"`
}

// NewRouter builds the HTTP surface: health, metrics and the two webhooks.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
	)

	status := func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, statusResponse{Status: "ok", Mode: d.Mode, Time: time.Now().UTC().Format(time.RFC3339)})
	}
	r.Get("/", status)
	r.Get("/healthz", status)
	r.Handle("/metrics", promhttp.Handler())

	if d.Telegram != nil {
		r.Post("/webhook/telegram", telegramWebhook(d.WebhookSecret, d.Telegram))
	}
	if d.Payments != nil {
		r.Post("/webhook/stripe", NewStripeWebhook(d.Payments).ServeHTTP)
	}
	return r
}

func telegramWebhook(secret string, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(telegramSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			slog.Warn("telegram webhook secret mismatch", "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv *http.Server
}

func New(port int, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  config.HTTPReadTimeout,
		WriteTimeout: config.HTTPWriteTimeout,
		IdleTimeout:  config.HTTPIdleTimeout,
	}}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.HTTPShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

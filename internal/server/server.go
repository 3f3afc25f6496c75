package server

import (
	"context"
	"net/http"
	"time"

	"github.com/carmelita/carmelita-be/internal/auth"
	"github.com/carmelita/carmelita-be/internal/config"
	"github.com/carmelita/carmelita-be/internal/credits"
	"github.com/carmelita/carmelita-be/internal/http/callable"
	"github.com/carmelita/carmelita-be/internal/http/handlers"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/metrics"
	"github.com/carmelita/carmelita-be/internal/middleware"
	"github.com/carmelita/carmelita-be/internal/payments"
	"github.com/carmelita/carmelita-be/internal/pricing"
	"github.com/carmelita/carmelita-be/internal/storage"
)

// Deps are the process-wide clients shared by every request.
type Deps struct {
	Store    storage.Store
	Catalog  *pricing.Catalog
	Prober   handlers.Prober
	Logger   *logging.Logger
	Checkout payments.CheckoutCreator // nil when Stripe checkout is not configured
	Events   handlers.EventClaimer    // nil disables webhook dedupe
	Probes   handlers.ProbeReporter   // nil when no probe schedule runs
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
	stop  chan struct{}
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	ledger := credits.NewLedger(deps.Store, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger, func(w http.ResponseWriter) {
		callable.Fail(w, callable.NewError(callable.ResourceExhausted, "too many requests"))
	})
	stop := make(chan struct{})
	limiter.StartCleanup(10*time.Minute, stop)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), deps.Store, deps.Probes).Register(mux)
	handlers.NewAuthHandler(deps.Store, tokens, cfg.InitialCredits, logger).Register(mux)
	handlers.NewProfileHandler(deps.Store, ledger, deps.Catalog, logger).Register(mux)
	handlers.NewWebhookHandler(payments.NewVerifier(cfg.StripeWebhookSecret), ledger, deps.Events, logger).Register(mux)
	handlers.NewCreditsHandler(ledger, deps.Checkout, deps.Catalog, logger).Register(mux, limiter.Handler)
	handlers.NewAIHealthHandler(deps.Prober, logger).Register(mux, limiter.Handler)
	mux.Handle("/metrics", metrics.Handler())

	handler := middleware.CORS(cfg.CORSOrigins,
		metrics.InstrumentHandler(
			middleware.Logging(logger,
				middleware.Authenticate(tokens, logger, mux))))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer, stop: stop}
}

// Handler exposes the fully wrapped handler chain.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stop)
	return s.inner.Shutdown(ctx)
}

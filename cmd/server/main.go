package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/carmelita/carmelita-be/internal/ai"
	"github.com/carmelita/carmelita-be/internal/config"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/payments"
	"github.com/carmelita/carmelita-be/internal/pricing"
	"github.com/carmelita/carmelita-be/internal/server"
	"github.com/carmelita/carmelita-be/internal/storage"
	"github.com/carmelita/carmelita-be/internal/storage/memory"
	"github.com/carmelita/carmelita-be/internal/storage/postgres"
	"github.com/carmelita/carmelita-be/internal/storage/redis"
)

const webhookEventTTL = 72 * time.Hour

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		logger.Info("no .env file found; relying on existing environment")
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("init database")
	}
	defer store.Close()

	catalog, err := pricing.Load(cfg.CreditPricingFile)
	if err != nil {
		logger.WithError(err).Fatal("load pricing catalog")
	}
	if len(catalog.List()) == 0 {
		logger.WithField("file", cfg.CreditPricingFile).Warn("pricing catalog is empty; checkout is unavailable")
	}

	deps := server.Deps{Store: store, Catalog: catalog, Logger: logger}

	if cfg.StripeSecretKey != "" {
		deps.Checkout = payments.NewStripeCheckout(cfg.StripeSecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; checkout sessions are disabled")
	}

	if cfg.WebhookDedupe {
		events, err := redis.NewEventLog(ctx, cfg.RedisAddr, webhookEventTTL)
		if err != nil {
			logger.WithError(err).Fatal("init webhook dedupe")
		}
		defer events.Close()
		deps.Events = events
		logger.WithField("redis", cfg.RedisAddr).Info("webhook dedupe enabled")
	}

	var gen ai.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.WithError(err).Fatal("init Gemini client")
		}
		defer gemini.Close()
		gen = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; AI health check will fail")
	}
	prober := ai.NewProber(gen, logger)
	deps.Prober = prober

	if cfg.AIHealthSchedule != "" {
		monitor, err := ai.NewMonitor(prober, cfg.AIHealthSchedule)
		if err != nil {
			logger.WithError(err).Fatal("invalid AI_HEALTH_SCHEDULE")
		}
		monitor.Start()
		defer monitor.Stop()
		deps.Probes = monitor
	}

	srv := server.New(cfg, deps)

	go func() {
		logger.WithField("addr", cfg.HTTPAddress()).Info("Carmelita backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("graceful shutdown error")
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (storage.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

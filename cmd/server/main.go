package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/nocap/internal"
	"github.com/DukeRupert/nocap/internal/ai"
	"github.com/DukeRupert/nocap/internal/ai/anthropic"
	"github.com/DukeRupert/nocap/internal/ai/mock"
	"github.com/DukeRupert/nocap/internal/ai/openai"
	"github.com/DukeRupert/nocap/internal/auth"
	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/cache"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/handler"
	"github.com/DukeRupert/nocap/internal/metrics"
	"github.com/DukeRupert/nocap/internal/middleware"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/DukeRupert/nocap/internal/service"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	store := repository.NewStore(db)

	// ==========================================================================
	// AI gateway
	// ==========================================================================

	provider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}
	gateway := ai.NewGateway(provider, ai.GatewayConfig{
		RequestTimeout: cfg.AIRequestTimeout,
		BlockList:      cfg.SafetyBlockList,
	}, logger)
	logger.Info("AI provider ready", "provider", provider.Name())

	// ==========================================================================
	// Identity and unlock tokens
	// ==========================================================================

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.AuthJWTSecret,
		JWKSURL:  cfg.AuthJWKSURL,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
	})
	if err != nil {
		return fmt.Errorf("token verifier initialization failed: %w", err)
	}

	unlockTokens, err := auth.NewUnlockTokens(cfg.UnlockTokenSecret, cfg.UnlockTokenTTL)
	if err != nil {
		return fmt.Errorf("unlock tokens initialization failed: %w", err)
	}

	// ==========================================================================
	// Billing and webhook de-duplication
	// ==========================================================================

	var billingSvc billing.Service
	if cfg.BillingEnabled() {
		billingSvc = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			OneTimePriceID: cfg.StripeOneTimePriceID,
			MonthlyPriceID: cfg.StripeMonthlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled: checkout returns 503 and webhooks are ignored")
	}

	var deduper cache.Deduper = cache.NewMemoryDeduper(cache.DefaultEventTTL)
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer redisClient.Close()
		deduper = cache.NewRedisDeduper(redisClient, "nocap:webhook:", cache.DefaultEventTTL)
		logger.Info("Webhook de-duplication backed by Redis")
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	policy := domain.EntitlementPolicy{
		FreeDailyScans: cfg.FreeDailyScans,
		Location:       cfg.ResetTimezone,
	}

	usageService := service.NewUsageService(store, policy, logger)
	scanService := service.NewScanService(store, usageService, gateway, unlockTokens, policy,
		service.ScanServiceConfig{BaseURL: cfg.BaseURL}, logger)
	unlockService := service.NewUnlockService(store, usageService, unlockTokens, billingSvc, logger)
	billingService := service.NewBillingService(store, billingSvc, cfg.BaseURL, logger)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := !cfg.IsDevelopment()
	authMw := middleware.NewAuthMiddleware(verifier, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(middleware.ScrapeCredentials{
		Username:    cfg.MetricsUsername,
		Password:    cfg.MetricsPassword,
		BearerToken: cfg.MetricsToken,
	}, logger)

	scanLimiter := middleware.NewRateLimiter(cfg.ScanRateLimitPerMinute, time.Minute)
	defer scanLimiter.Stop()
	scanRateMw := middleware.NewRateLimitMiddleware(scanLimiter, logger)

	// Initialize handlers
	scanHandler := handler.NewScanHandler(scanService, unlockService, cfg.FreeDailyScans, logger)
	checkoutHandler := handler.NewCheckoutHandler(billingService, logger)
	usageHandler := handler.NewUsageHandler(usageService, logger)
	webhookHandler := handler.NewWebhookHandler(billingSvc, billingService, deduper, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Every scan route works anonymously; the viewer is attached when present.
	withViewer := middleware.Stack(authMw.WithViewer)
	requireViewer := middleware.Stack(authMw.WithViewer, authMw.RequireViewer)

	mux.Handle("POST /api/scans", middleware.Stack(scanRateMw.Limit, authMw.WithViewer)(http.HandlerFunc(scanHandler.Submit)))
	mux.Handle("GET /api/scans/{id}", withViewer(http.HandlerFunc(scanHandler.View)))
	mux.Handle("POST /api/checkout", requireViewer(http.HandlerFunc(checkoutHandler.Create)))
	mux.Handle("GET /api/me/usage", requireViewer(http.HandlerFunc(usageHandler.Get)))

	// Stripe signs the raw body; no viewer middleware.
	webhookHandler.RegisterRoutes(mux)

	root := middleware.Stack(
		metrics.Middleware,
		securityMw.Handler,
		loggingMw.Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		// Leave room for the AI call on POST /api/scans.
		WriteTimeout: cfg.AIRequestTimeout + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newAIProvider selects the analysis backend named by AI_PROVIDER.
func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		}, logger)
	case "openai":
		return openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}, logger)
	default:
		logger.Warn("Using mock AI provider")
		return mock.New(logger), nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

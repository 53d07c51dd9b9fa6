package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/blibbers/vibekit/internal/application/billing"
	catalogapp "github.com/blibbers/vibekit/internal/application/catalog"
	"github.com/blibbers/vibekit/internal/infrastructure/auth"
	"github.com/blibbers/vibekit/internal/infrastructure/billing"
	"github.com/blibbers/vibekit/internal/infrastructure/cache"
	"github.com/blibbers/vibekit/internal/infrastructure/config"
	"github.com/blibbers/vibekit/internal/infrastructure/logger"
	"github.com/blibbers/vibekit/internal/infrastructure/migration"
	"github.com/blibbers/vibekit/internal/infrastructure/persistence"
	"github.com/blibbers/vibekit/internal/infrastructure/telemetry"
	"github.com/blibbers/vibekit/internal/interfaces/http/handler"
	"github.com/blibbers/vibekit/internal/interfaces/http/middleware"
	"github.com/blibbers/vibekit/internal/interfaces/http/router"
	"github.com/blibbers/vibekit/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
	log.Info("Server stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry, cfg.App.Name, version, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, cfg.App.Name, version, log)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush metrics", zap.Error(err))
		}
	}()

	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, cfg.App.Name, version, log)
	if err != nil {
		return fmt.Errorf("init log export: %w", err)
	}
	defer func() {
		if err := lp.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to flush exported logs", zap.Error(err))
		}
	}()
	log = lp.Tee(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.App.Name, log)
	if err != nil {
		return fmt.Errorf("init profiler: %w", err)
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Failed to stop profiler", zap.Error(err))
		}
	}()
	if profiler.Enabled() {
		tp.EnableSpanProfiles()
	}

	webhookMetrics, err := telemetry.NewWebhookMetrics(mp.Meter())
	if err != nil {
		return err
	}

	db, err := persistence.NewDatabase(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver()))

	if tp.Enabled() {
		if err := telemetry.InstrumentDB(db.DB, db.Driver()); err != nil {
			return fmt.Errorf("instrument database: %w", err)
		}
	}

	if err := migrateSchema(db, log); err != nil {
		return err
	}

	events := cache.NewEventStore(ctx, cfg.Redis, log)
	defer func() { _ = events.Close() }()

	gateway, err := billing.NewStripeGateway(cfg.Stripe, log)
	if err != nil {
		return fmt.Errorf("init payment gateway: %w", err)
	}

	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	processor := billingapp.NewWebhookProcessor(billingapp.WebhookProcessorConfig{
		Gateway:  gateway,
		Users:    userRepo,
		Orders:   orderRepo,
		Events:   events,
		EventTTL: cfg.Webhook.IdempotencyTTL,
		Metrics:  webhookMetrics,
		Logger:   log,
	})
	subscriptions := billingapp.NewSubscriptionService(userRepo, productRepo, gateway, log)
	payments := billingapp.NewPaymentService(billingapp.PaymentServiceConfig{
		Users:           userRepo,
		Orders:          orderRepo,
		Gateway:         gateway,
		DefaultCurrency: cfg.Stripe.DefaultCurrency,
		Logger:          log,
	})
	products := catalogapp.NewProductService(productRepo, gateway, cfg.Stripe.DefaultCurrency, log)

	webhookLimiter := middleware.NewRateLimiter(cfg.Webhook.RateLimit, cfg.Webhook.RateBurst)
	defer webhookLimiter.Stop()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.Config{
		ServiceName:    cfg.App.Name,
		TracingEnabled: tp.Enabled(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORSOrigins:    cfg.HTTP.CORSAllowOrigins,
		Verifier:       auth.NewTokenVerifier(cfg.JWT),
		WebhookLimiter: webhookLimiter,
		Logger:         log,
	}, router.Handlers{
		Health:        handler.NewHealthHandler(cfg.App.Name, db),
		Webhook:       handler.NewWebhookHandler(processor),
		Subscriptions: handler.NewSubscriptionHandler(subscriptions),
		Payments:      handler.NewPaymentHandler(payments),
		Products:      handler.NewProductHandler(products),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// migrateSchema applies the embedded SQL migrations on postgres and falls back
// to AutoMigrate for the sqlite development setup
func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	if db.Driver() == "sqlite" {
		return db.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// Close on the migrator would close sqlDB too, which the repositories still use
	if err := m.Up(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

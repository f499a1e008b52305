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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shantivaas/rental/internal/infrastructure/auth"
	"github.com/shantivaas/rental/internal/infrastructure/cache"
	"github.com/shantivaas/rental/internal/infrastructure/config"
	"github.com/shantivaas/rental/internal/infrastructure/logger"
	"github.com/shantivaas/rental/internal/infrastructure/payment"
	"github.com/shantivaas/rental/internal/infrastructure/persistence"
	"github.com/shantivaas/rental/internal/infrastructure/scheduler"
	"github.com/shantivaas/rental/internal/infrastructure/strategy/allocation"
	"github.com/shantivaas/rental/internal/infrastructure/telemetry"
	"github.com/shantivaas/rental/internal/interfaces/http/handler"
	"github.com/shantivaas/rental/internal/interfaces/http/middleware"
	"github.com/shantivaas/rental/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// OpenTelemetry: traces, metrics, and the zap log bridge
	signals, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = signals.Bridge(log, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	log.Info("Starting rental backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with the zap-backed GORM logger
	var gormOpts []logger.GormLoggerOption
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		gormOpts = append(gormOpts, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DBTracingFromConfig(cfg.Telemetry, cfg.Database.DBName)
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Metrics
	meter := signals.Meter.Meter(cfg.Telemetry.ServiceName)
	paymentMetrics, err := telemetry.NewPaymentMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to register payment metrics", zap.Error(err))
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	cycleRepo := persistence.NewGormRentCycleRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	summaryReader := persistence.NewGormCollectionSummaryReader(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Billing terms
	policy, err := cyclePolicy(cfg.Billing)
	if err != nil {
		log.Fatal("Invalid billing configuration", zap.Error(err))
	}
	locale, err := language.Parse(cfg.Billing.Locale)
	if err != nil {
		log.Fatal("Invalid billing locale", zap.String("locale", cfg.Billing.Locale), zap.Error(err))
	}

	engine := apprental.NewAllocationEngine(allocation.NewOldestFirstStrategy(), log,
		apprental.WithCyclePolicy(policy),
		apprental.WithNoteFormatter(apprental.NewNoteFormatter(locale)),
		apprental.WithEngineMetrics(paymentMetrics),
	)

	// Gateway replay store
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Payment gateway, optional
	var gateway rental.Gateway
	if cfg.Razorpay.Enabled() {
		adapter, err := payment.NewRazorpayAdapter(payment.NewRazorpayConfig(cfg.Razorpay))
		if err != nil {
			log.Fatal("Failed to configure Razorpay", zap.Error(err))
		}
		gateway = adapter
		log.Info("Razorpay gateway enabled")
	} else {
		log.Warn("Razorpay credentials not set, gateway endpoints will return 503")
	}

	// Application services
	paymentService := apprental.NewPaymentService(apprental.PaymentServiceConfig{
		Scope:       scope,
		Engine:      engine,
		Gateway:     gateway,
		TenantRepo:  tenantRepo,
		CycleRepo:   cycleRepo,
		Idempotency: idempotencyStore,
		IdempotencyConfig: shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		},
		Metrics: paymentMetrics,
		Logger:  log,
	})
	rentCycleService := apprental.NewRentCycleService(tenantRepo, cycleRepo, paymentRepo, summaryReader, policy, log)
	tenantService := apprental.NewTenantService(tenantRepo, policy.Location, log)

	// Background jobs
	jobs := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Enabled:    cfg.Scheduler.Enabled,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}, log)
	if err := scheduler.RegisterRentJobs(jobs, rentCycleService, scheduler.RentJobIntervals{
		Generation: cfg.Scheduler.GenerationInterval,
		Overdue:    cfg.Scheduler.OverdueInterval,
	}, log); err != nil {
		log.Fatal("Failed to register rent jobs", zap.Error(err))
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var checkoutLimiter *middleware.RateLimiter
	if cfg.HTTP.CheckoutRateLimit > 0 {
		checkoutLimiter = middleware.NewRateLimiter(cfg.HTTP.CheckoutRateLimit, cfg.HTTP.CheckoutRateWindow)
		defer checkoutLimiter.Close()
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.Env == "production"

	httpEngine := router.NewEngine(router.Options{
		Logger:    log,
		Validator: auth.NewJWTService(cfg.JWT),
		HTTP:      cfg.HTTP,
		Security:  security,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     signals.Tracer.IsEnabled(),
		},
		Meter:           meter,
		CheckoutLimiter: checkoutLimiter,
	}, router.Handlers{
		Health:     handler.NewHealthHandler(db),
		Payments:   handler.NewPaymentHandler(paymentService),
		RentCycles: handler.NewRentCycleHandler(rentCycleService),
		Tenants:    handler.NewTenantHandler(tenantService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	stats := db.Stats()
	log.Info("Database pool at shutdown",
		zap.Int("open", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if err := signals.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// cyclePolicy converts the billing section into rent cycle terms
func cyclePolicy(cfg config.BillingConfig) (apprental.CyclePolicy, error) {
	lateFee, err := cfg.LateFeeAmount()
	if err != nil {
		return apprental.CyclePolicy{}, fmt.Errorf("billing.late_fee: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return apprental.CyclePolicy{}, fmt.Errorf("billing.timezone: %w", err)
	}
	return apprental.CyclePolicy{
		DueDay:           cfg.DueDay,
		LateFee:          lateFee,
		LateFeeGraceDays: cfg.LateFeeGraceDays,
		Location:         loc,
	}, nil
}

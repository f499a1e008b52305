package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/shantivaas/rental/internal/infrastructure/auth"
	"github.com/shantivaas/rental/internal/infrastructure/config"
	"github.com/shantivaas/rental/internal/infrastructure/logger"
	"github.com/shantivaas/rental/internal/interfaces/http/handler"
	"github.com/shantivaas/rental/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers the API serves
type Handlers struct {
	Health     *handler.HealthHandler
	Payments   *handler.PaymentHandler
	RentCycles *handler.RentCycleHandler
	Tenants    *handler.TenantHandler
}

// Options configures the engine's middleware stack
type Options struct {
	Logger    *zap.Logger
	Validator middleware.TokenValidator
	HTTP      config.HTTPConfig
	Security  middleware.SecurityConfig
	Tracing   middleware.TracingConfig
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
	// CheckoutLimiter throttles order and verify calls; nil disables it
	CheckoutLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine with every route mounted.
//
// Global middleware order: request id, recovery, access log, security
// headers, CORS, body limit, tracing, metrics.
func NewEngine(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecureWithConfig(opts.Security))
	engine.Use(middleware.CORSWithConfig(corsConfig(opts.HTTP)))
	engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	if opts.Tracing.Enabled {
		engine.Use(middleware.TracingWithConfig(opts.Tracing))
		engine.Use(middleware.SpanEnricher())
	}
	if opts.Meter != nil {
		engine.Use(middleware.HTTPMetrics(opts.Meter, log))
	}

	engine.GET("/health", h.Health.Health)

	jwt := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Validator: opts.Validator,
		Logger:    log,
	})

	admin := NewGroup("admin", "/admin", jwt, middleware.RequireRole(auth.RoleAdmin))
	admin.POST("/payments/mark", h.Payments.MarkPayment)
	admin.GET("/payments", h.RentCycles.ListPayments)
	admin.POST("/rent-cycles/generate", h.RentCycles.GenerateCycles)
	admin.POST("/rent-cycles/refresh-overdue", h.RentCycles.RefreshOverdue)
	admin.GET("/collections", h.RentCycles.Collections)
	admin.POST("/tenants", h.Tenants.Create)
	admin.GET("/tenants", h.Tenants.List)
	admin.GET("/tenants/:id", h.Tenants.Get)
	admin.add(http.MethodPut, "/tenants/:id", []gin.HandlerFunc{h.Tenants.Update})
	admin.POST("/tenants/:id/deactivate", h.Tenants.Deactivate)

	checkout := NewGroup("razorpay", "/razorpay", jwt, middleware.RequireRole(auth.RoleTenant, auth.RoleAdmin))
	if opts.CheckoutLimiter != nil {
		checkout.Use(middleware.RateLimitByUser(opts.CheckoutLimiter))
	}
	checkout.POST("/order", h.Payments.CreateOrder)
	checkout.POST("/verify", h.Payments.VerifyPayment)

	// The gateway authenticates with the body signature, not a bearer token
	webhooks := NewGroup("webhooks", "/webhooks")
	webhooks.POST("/razorpay", h.Payments.Webhook)

	tenant := NewGroup("tenant", "/tenant", jwt)
	tenant.GET("/rent-cycles", h.RentCycles.TenantCycles)
	tenant.GET("/payments", h.RentCycles.TenantPayments)

	groups := []*Group{admin, checkout, webhooks, tenant}
	Mount(engine.Group(APIPrefix), groups...)
	for _, g := range groups {
		log.Debug("Mounted route group",
			zap.String("group", g.Name()),
			zap.Strings("endpoints", g.Endpoints()),
		)
	}

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	return cors
}

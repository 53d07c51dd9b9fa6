package router

import (
	"github.com/blibbers/vibekit/internal/infrastructure/auth"
	"github.com/blibbers/vibekit/internal/infrastructure/logger"
	"github.com/blibbers/vibekit/internal/interfaces/http/handler"
	"github.com/blibbers/vibekit/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxBodySize = 1 << 20

// Handlers groups everything the API serves
type Handlers struct {
	Health        *handler.HealthHandler
	Webhook       *handler.WebhookHandler
	Subscriptions *handler.SubscriptionHandler
	Payments      *handler.PaymentHandler
	Products      *handler.ProductHandler
}

// Config holds the cross-cutting pieces the engine is built from
type Config struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	CORSOrigins    []string
	Verifier       *auth.TokenVerifier
	WebhookLimiter *middleware.RateLimiter
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with global middleware and all routes
func NewEngine(cfg Config, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(cfg.Logger),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		logger.GinMiddleware(cfg.Logger),
		middleware.Secure(),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)),
	)

	engine.GET("/health", h.Health.Health)

	r := NewRouter(engine)
	r.Register(webhookRoutes(cfg, h)).
		Register(productRoutes(h)).
		Register(subscriptionRoutes(cfg, h)).
		Register(paymentRoutes(cfg, h)).
		Register(adminRoutes(cfg, h))
	r.Setup()

	return engine
}

func webhookRoutes(cfg Config, h Handlers) *DomainGroup {
	// Webhooks read and bound the raw body themselves
	g := NewDomainGroup("webhooks", "/webhooks")
	if cfg.WebhookLimiter != nil {
		g.Use(middleware.RateLimit(cfg.WebhookLimiter))
	}
	return g.POST("/stripe", h.Webhook.HandleStripe)
}

func productRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("products", "/products").
		GET("", h.Products.List).
		GET("/:id", h.Products.Get)
}

func authenticated(cfg Config, name, prefix string) *DomainGroup {
	return NewDomainGroup(name, prefix).Use(
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.JWTAuth(cfg.Verifier, cfg.Logger),
	)
}

func subscriptionRoutes(cfg Config, h Handlers) *DomainGroup {
	s := h.Subscriptions
	g := authenticated(cfg, "subscriptions", "/subscriptions").
		GET("/current", s.GetCurrent).
		GET("/status", s.GetStatus).
		GET("/invoices", s.ListInvoices).
		POST("/checkout", s.CreateCheckout).
		PUT("/change-plan", s.ChangePlan).
		POST("/cancel", s.Cancel).
		POST("/resume", s.Resume)

	g.Group("payment-methods", "/payment-methods").
		GET("", s.ListPaymentMethods).
		POST("", s.AddPaymentMethod).
		POST("/setup-intent", s.CreateSetupIntent).
		DELETE("/:id", s.RemovePaymentMethod).
		PUT("/:id/default", s.SetDefaultPaymentMethod)
	return g
}

func paymentRoutes(cfg Config, h Handlers) *DomainGroup {
	p := h.Payments
	return authenticated(cfg, "payments", "/payments").
		POST("/payment-intent", p.CreatePaymentIntent).
		POST("/orders/:id/payment-intent", p.CreateOrderPayment).
		POST("/subscription", p.CreateSubscription).
		POST("/subscription/cancel", p.CancelSubscription)
}

func adminRoutes(cfg Config, h Handlers) *DomainGroup {
	return authenticated(cfg, "admin", "/admin").
		Use(middleware.RequireAdmin()).
		POST("/products", h.Products.Create).
		POST("/orders/:id/refund", h.Payments.RefundOrder)
}

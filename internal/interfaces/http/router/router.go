package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/logger"
	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/handler"
	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/middleware"
)

// LegacyWebhookPath is the order webhook path registered in the Commerce Hub
// before the versioned API existed
const LegacyWebhookPath = "/sync-tiendanube"

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup creates a route group with its own middleware
type DomainGroup struct {
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new route group under prefix
func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodGet, path: path, handlers: handlers})
	return dg
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodPost, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Config holds what the HTTP API needs to serve requests
type Config struct {
	Info           handler.SystemInfo
	Logger         *zap.Logger
	MaxBodySize    int64
	WebhookSecret  string
	TrustedProxies []string

	Orders   handler.OrderReconciler
	Jobs     handler.JobRunner
	Webhooks handler.WebhookObserver
	HTTP     middleware.HTTPObserver

	// MetricsHandler is served at MetricsPath when both are set
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewEngine builds the gin engine with middleware and every route
func NewEngine(cfg Config) (*gin.Engine, error) {
	if cfg.Orders == nil {
		return nil, fmt.Errorf("router: order reconciler is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 2 << 20
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("router: invalid trusted proxies: %w", err)
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.Secure(),
		middleware.HTTPMetrics(cfg.HTTP),
	)

	system := handler.NewSystemHandler(cfg.Info)
	engine.GET("/", system.Root)
	engine.GET("/health", system.Health)

	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		engine.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsHandler))
	}

	orders := handler.NewOrderWebhookHandler(cfg.Orders, cfg.Webhooks)
	webhookMiddleware := []gin.HandlerFunc{
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.WebhookSignature(cfg.WebhookSecret),
	}
	engine.POST(LegacyWebhookPath, append(webhookMiddleware, orders.HandleOrder)...)

	r := NewRouter(engine)
	r.Register(NewDomainGroup("/webhooks").
		Use(webhookMiddleware...).
		POST("/orders", orders.HandleOrder))
	if cfg.Jobs != nil {
		r.Register(handler.NewSyncHandler(cfg.Jobs))
	}
	r.Setup()

	return engine, nil
}

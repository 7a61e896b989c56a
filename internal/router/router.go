package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/RyneJoanams/gulf-main-sub001/internal/handler/health"
	"github.com/RyneJoanams/gulf-main-sub001/internal/middleware"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode         string
	CORSConfig   middleware.CORSConfig
	RateLimit    *middleware.RateLimiterConfig
	MaxBodyBytes int64
	MetricsPath  string
	Security     middleware.SecurityConfig
}

type Router struct {
	engine    *gin.Engine
	config    RouterConfig
	auth      *middleware.AuthMiddleware
	health    *health.Handler
	public    []Handler
	protected []Handler
}

func NewRouter(
	config RouterConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	middleware.ConfigureBinding()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}
	engine.Use(middleware.SizeLimit(config.MaxBodyBytes))

	return &Router{
		engine: engine,
		config: config,
		auth:   auth,
		health: healthH,
	}
}

// Public adds handlers served without authentication.
func (r *Router) Public(h ...Handler) {
	r.public = append(r.public, h...)
}

// Protected adds handlers served behind Authenticate.
func (r *Router) Protected(h ...Handler) {
	r.protected = append(r.protected, h...)
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(&r.engine.RouterGroup)
	if r.config.MetricsPath != "" {
		r.health.RegisterMetrics(r.engine, r.config.MetricsPath)
	}

	api := r.engine.Group("/api")
	for _, h := range r.public {
		h.RegisterRoutes(api)
	}

	protected := api.Group("", r.auth.Authenticate())
	for _, h := range r.protected {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

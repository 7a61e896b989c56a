package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is anything whose availability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	store    Pinger
	registry *prometheus.Registry
	timeout  time.Duration
}

// NewHandler serves health checks for store. Metrics are served only when
// registry is not nil.
func NewHandler(store Pinger, registry *prometheus.Registry) *Handler {
	return &Handler{
		store:    store,
		registry: registry,
		timeout:  2 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

// RegisterMetrics serves the prometheus registry on path.
func (h *Handler) RegisterMetrics(r gin.IRoutes, path string) {
	if h.registry == nil {
		return
	}
	r.GET(path, gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "storage unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

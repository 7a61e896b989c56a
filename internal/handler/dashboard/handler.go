package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/RyneJoanams/gulf-main-sub001/internal/service/dashboard"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/httputil"
)

type Handler struct {
	svc        *dashboard.Service
	middleware []gin.HandlerFunc
}

// NewHandler serves the dashboard behind the given middleware.
func NewHandler(svc *dashboard.Service, middleware ...gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, middleware: middleware}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/dashboard", h.middleware...)
	g.GET("/summary", h.Summary)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

package workflow

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RyneJoanams/gulf-main-sub001/internal/service/workflow"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/httputil"
)

type Handler struct {
	svc *workflow.Service
}

func NewHandler(svc *workflow.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/workflow")
	{
		g.GET("/clinical-queue", h.Queue)
		g.GET("/processed", h.Processed)
		// Lab numbers may contain slashes, e.g. GM/2024/0153.
		g.GET("/records/*labNumber", h.Record)
	}
}

func (h *Handler) Queue(c *gin.Context) {
	entries, err := h.svc.Queue(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}

func (h *Handler) Processed(c *gin.Context) {
	bases, err := h.svc.Processed(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bases)
}

func (h *Handler) Record(c *gin.Context) {
	labNumber := strings.TrimPrefix(c.Param("labNumber"), "/")
	entry, err := h.svc.Record(c.Request.Context(), labNumber)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}

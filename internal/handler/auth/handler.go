package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/RyneJoanams/gulf-main-sub001/internal/middleware"
	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/auth"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/httputil"
)

type Handler struct {
	svc  *auth.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *auth.Service, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: authMiddleware}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/auth")
	{
		g.POST("/login", h.Login)
		g.GET("/me", h.auth.Authenticate(), h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

// Me returns the user the bearer token belongs to.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		httputil.RespondWithError(c, errors.NewUnauthorized("not authenticated"))
		return
	}

	user, err := h.svc.Me(c.Request.Context(), claims.Subject)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

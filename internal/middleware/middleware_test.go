package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/auth"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "success"}) }

func newAuthRouter(enabled bool) (*gin.Engine, auth.JWTService) {
	jwtSvc := auth.NewJWTService("secret", "clinic", time.Hour)
	m := NewAuthMiddleware(jwtSvc, enabled)
	r := gin.New()
	r.GET("/open", m.Authenticate(), ok)
	r.GET("/admin", m.Authenticate(), m.RequireDepartment("admin"), ok)
	r.GET("/whoami", m.Authenticate(), func(c *gin.Context) {
		claims, found := ClaimsFrom(c)
		if !found {
			c.Status(http.StatusNoContent)
			return
		}
		c.String(http.StatusOK, claims.Email)
	})
	return r, jwtSvc
}

func bearer(t *testing.T, svc auth.JWTService, dept string) string {
	t.Helper()
	token, _, err := svc.GenerateAccessToken(auth.Subject{ID: "u1", Email: "u1@clinic.test", Department: dept})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthenticate(t *testing.T) {
	r, svc := newAuthRouter(true)

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"empty":   "Bearer ",
		"garbage": "Bearer not-a-token",
	} {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := serve(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Contains(t, w.Body.String(), `"status":"error"`, name)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, svc, "laboratory"))
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1@clinic.test", w.Body.String())
}

func TestRequireDepartment(t *testing.T) {
	r, svc := newAuthRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearer(t, svc, "laboratory"))
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearer(t, svc, "admin"))
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestAuthDisabledLetsEverythingThrough(t *testing.T) {
	r, _ := newAuthRouter(false)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil)).Code)
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})
	r := gin.New()
	r.GET("/", rl.RateLimit(), ok)

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zerolog.Nop()), Recovery(zerolog.Nop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	r.GET("/ok", ok)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.clinic.test"}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", ok)
	r.OPTIONS("/", ok)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.clinic.test")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.clinic.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSizeLimitAndSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()), SizeLimit(16))
	r.POST("/", ok)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789abcdef"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewMetrics("test", "")
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/patients/:id", ok)

	serve(r, httptest.NewRequest(http.MethodGet, "/api/patients/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/api/patients/2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/patients/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestConfigureBinding(t *testing.T) {
	require.True(t, ConfigureBinding())

	type body struct {
		LabNumber string `json:"labNumber" binding:"required,labnumber"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"labNumber":"LAB-1"}`))).Code)
	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"labNumber":"bad lab#"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "labNumber")
}

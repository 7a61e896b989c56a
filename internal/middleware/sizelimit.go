package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/httputil"
)

// SizeLimit rejects bodies larger than maxBytes. Lab reports carry a
// base64 patient photo, so the limit is set well above plain JSON sizes.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
				Status:  httputil.StatusError,
				Message: fmt.Sprintf("request body exceeds %d bytes", maxBytes),
			})
			return
		}
		// Bodies without a declared length fail on read past the limit.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

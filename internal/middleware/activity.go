package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tvet-reg-api/internal/models"
)

// CaptureClientInfo stores the caller's IP and user agent on the request
// context so audit records written downstream carry them.
func CaptureClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := models.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(models.WithRequestMeta(c.Request.Context(), meta))
		c.Next()
	}
}

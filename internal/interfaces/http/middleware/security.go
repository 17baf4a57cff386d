package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the standard protective headers on every
// response. The API serves JSON only, so the CSP can stay at 'self'.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Server", "Pharmacy API")

		c.Next()
	}
}

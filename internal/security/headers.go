// Package security provides hardening middleware for the HTTP surface.
package security

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// responseHeaders are set on every response. The API serves JSON plus
// the websocket audit feed; nothing here is meant to render in a
// browser, so framing and script sources are locked down.
var responseHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"X-XSS-Protection":        "1; mode=block",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Content-Security-Policy": "default-src 'self'; connect-src 'self' ws: wss:; frame-ancestors 'none'",
	"Permissions-Policy":      "geolocation=(), microphone=(), camera=()",
}

// HeadersMiddleware applies the fixed hardening headers to every response.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range responseHeaders {
			c.Header(name, value)
		}
		c.Next()
	}
}

// CORSMiddleware answers cross-origin requests for the origins in
// allowed. An entry of "*" admits any origin, in which case credentials
// are never allowed to accompany the wildcard.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	wildcard := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		origins[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || origins[origin] || len(allowed) == 0) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
			if !wildcard {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

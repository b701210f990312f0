// Package security provides security middleware for the storefront API.
package security

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeadersOptions tunes HeadersMiddleware.
type HeadersOptions struct {
	// HSTS enables Strict-Transport-Security. Only set it when the site is
	// served exclusively over https.
	HSTS bool
	// ScriptSources are extra origins allowed in script-src and connect-src,
	// e.g. the analytics tag host.
	ScriptSources []string
}

// HeadersMiddleware adds security headers to all responses
func HeadersMiddleware(opts HeadersOptions) gin.HandlerFunc {
	extra := strings.Join(opts.ScriptSources, " ")
	if extra != "" {
		extra = " " + extra
	}
	csp := "default-src 'self'; script-src 'self' 'unsafe-inline'" + extra +
		"; style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; font-src 'self' https://fonts.gstatic.com" +
		"; img-src 'self' data: https:; connect-src 'self'" + extra + "; frame-ancestors 'none'"

	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", csp)
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if opts.HSTS {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// SiteOrigins returns the browser origins of a public domain, with and
// without the www prefix.
func SiteOrigins(domain string) []string {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	return []string{"https://www." + domain, "https://" + domain}
}

// CORSMiddleware handles CORS for API endpoints
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originsMap := make(map[string]bool)
	for _, o := range allowedOrigins {
		originsMap[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if len(allowedOrigins) == 0 || originsMap[origin] || originsMap["*"] {
			if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID, Stripe-Signature")
			c.Header("Access-Control-Max-Age", "86400")
			// wildcard + credentials is rejected by browsers
			if !originsMap["*"] {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

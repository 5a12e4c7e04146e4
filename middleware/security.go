package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// SecurityConfig contains security header configuration
type SecurityConfig struct {
	CSPPolicy          string
	FrameOptions       string
	ContentTypeOptions bool
	ReferrerPolicy     string
	PermissionsPolicy  string
	CacheControl       string
}

// DefaultSecurityConfig returns the header set for the local app. Images are
// shown from blob: and data: URLs built in the page.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		CSPPolicy:          "default-src 'self'; img-src 'self' data: blob:; style-src 'self' 'unsafe-inline'; script-src 'self'; connect-src 'self'; object-src 'none'; base-uri 'self'; form-action 'self'; frame-ancestors 'none'",
		FrameOptions:       "DENY",
		ContentTypeOptions: true,
		ReferrerPolicy:     "no-referrer",
		PermissionsPolicy:  "camera=(), microphone=(), geolocation=(), payment=()",
		CacheControl:       "no-store",
	}
}

// SecurityHeaders sets the configured headers on every response.
func SecurityHeaders(config *SecurityConfig) fiber.Handler {
	if config == nil {
		config = DefaultSecurityConfig()
	}
	return func(c *fiber.Ctx) error {
		if config.CSPPolicy != "" {
			c.Set("Content-Security-Policy", config.CSPPolicy)
		}
		if config.FrameOptions != "" {
			c.Set("X-Frame-Options", config.FrameOptions)
		}
		if config.ContentTypeOptions {
			c.Set("X-Content-Type-Options", "nosniff")
		}
		if config.ReferrerPolicy != "" {
			c.Set("Referrer-Policy", config.ReferrerPolicy)
		}
		if config.PermissionsPolicy != "" {
			c.Set("Permissions-Policy", config.PermissionsPolicy)
		}
		if config.CacheControl != "" {
			c.Set(fiber.HeaderCacheControl, config.CacheControl)
		}
		c.Set("X-Permitted-Cross-Domain-Policies", "none")
		return c.Next()
	}
}

// ExposeHeaders lists response headers a same-origin script may read.
func ExposeHeaders(names ...string) fiber.Handler {
	value := ""
	for i, n := range names {
		if i > 0 {
			value += ", "
		}
		value += n
	}
	return func(c *fiber.Ctx) error {
		if value != "" {
			c.Set(fiber.HeaderAccessControlExposeHeaders, value)
		}
		return c.Next()
	}
}

func errorBody(msg string, args ...interface{}) fiber.Map {
	return fiber.Map{"error": fmt.Sprintf(msg, args...)}
}

package middleware

import (
	"net"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalOnly rejects requests that do not come from the loopback interface.
// Photos are edited on the user's machine and must not be reachable from the
// network even when the listen address is widened by mistake.
func LocalOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := net.ParseIP(c.IP())
		if ip == nil || !ip.IsLoopback() {
			return c.Status(fiber.StatusForbidden).JSON(errorBody("Only local connections are accepted"))
		}
		return c.Next()
	}
}

// SameOrigin blocks state-changing requests whose Origin header names another
// site, so a web page cannot drive the local API behind the user's back.
// Requests without an Origin (CLI tools, curl) are let through.
func SameOrigin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		u, err := url.Parse(origin)
		if err != nil || !strings.EqualFold(u.Host, c.Hostname()) {
			return c.Status(fiber.StatusForbidden).JSON(errorBody("Cross-origin request rejected: %s", origin))
		}
		return c.Next()
	}
}

package controllers

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetClientIP determines the client address considering proxies. The first
// X-Forwarded-For entry wins, then Cloudflare's header, then the socket peer.
// IPv4-mapped IPv6 addresses are reported in their IPv4 form.
func GetClientIP(c *fiber.Ctx) string {
	// 1. X-Forwarded-For can contain a list of IPs - the first one is the original client IP
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if ip := normalizeIP(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	// 2. Cloudflare provides the original client IP in this header
	if ip := normalizeIP(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	// 3. No proxy headers, use the connection address
	if ip := normalizeIP(c.IP()); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// jsonError writes the API error body used by every JSON endpoint.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

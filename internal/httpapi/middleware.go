// Package httpapi builds the three independent HTTP surfaces (API,
// Health, Dashboard) as separate *gin.Engine instances, generalizing the
// teacher's single-listener examples/webserver into three. The API and
// Dashboard surfaces read the same registry; the middleware chain below
// guards the API surface only.
package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vpnsentinel/vpnsentinel/internal/ratelimit"
	"github.com/vpnsentinel/vpnsentinel/internal/vpnerr"
)

// AccessLog logs one structured line per request. It runs first in the
// middleware chain so every request is logged regardless of how later
// middleware disposes of it.
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"remote_ip", c.ClientIP(),
			"duration", time.Since(start).String(),
		)
	}
}

// IPAllowlist rejects requests from source IPs outside the given
// CIDR list. An empty list, or any entry equal to 0.0.0.0/0, means "any".
func IPAllowlist(cidrs []string) gin.HandlerFunc {
	nets := parseCIDRs(cidrs)
	return func(c *gin.Context) {
		if len(nets) == 0 {
			c.Next()
			return
		}
		ip := net.ParseIP(c.ClientIP())
		if ip == nil {
			abortJSON(c, vpnerr.Auth("could not determine client IP"))
			return
		}
		for _, n := range nets {
			if n.Contains(ip) {
				c.Next()
				return
			}
		}
		abortJSON(c, vpnerr.Auth("source IP not in allowlist"))
	}
}

func parseCIDRs(raw []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || s == "0.0.0.0/0" {
			return nil
		}
		_, n, err := net.ParseCIDR(s)
		if err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}

// RateLimit enforces the per-IP token-bucket limit of ratelimit.Limiter,
// third in the middleware order, returning 429 with a populated
// Retry-After header on rejection.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if !allowed {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limited",
				"retry_after": seconds,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIKey checks the X-API-Key header in constant time. An empty
// configured key disables auth entirely (development only; the caller
// is expected to have logged a startup warning).
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			abortJSON(c, vpnerr.Auth("missing or invalid API key"))
			return
		}
		c.Next()
	}
}

// abortJSON maps a typed error to an {error, message} body and its
// associated status code, then aborts the chain.
func abortJSON(c *gin.Context, err error) {
	verr, ok := err.(*vpnerr.Error)
	if !ok {
		verr = vpnerr.Internal("unexpected error", err)
	}
	c.JSON(verr.Kind.HTTPStatus(), gin.H{
		"error":   string(verr.Kind),
		"message": verr.Message,
	})
	c.Abort()
}

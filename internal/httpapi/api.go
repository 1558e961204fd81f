package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vpnsentinel/vpnsentinel/internal/notifier"
	"github.com/vpnsentinel/vpnsentinel/internal/payload"
	"github.com/vpnsentinel/vpnsentinel/internal/ratelimit"
	"github.com/vpnsentinel/vpnsentinel/internal/registry"
	"github.com/vpnsentinel/vpnsentinel/internal/vpnerr"
)

// APIConfig bundles everything the authenticated API surface needs.
type APIConfig struct {
	Path      string
	APIKey    string
	Allowlist []string
	RateLimit *ratelimit.Limiter
	Registry  *registry.Registry
	SelfView  *registry.SelfView
	Notifier  *notifier.Notifier
	Logger    *slog.Logger
}

// NewAPIRouter builds the authenticated, rate-limited keepalive/status
// surface, running AccessLog, IPAllowlist, RateLimit and APIKey in that
// order ahead of each handler.
func NewAPIRouter(cfg APIConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	group := r.Group(cfg.Path)
	group.Use(
		AccessLog(cfg.Logger),
		IPAllowlist(cfg.Allowlist),
		RateLimit(cfg.RateLimit),
		APIKey(cfg.APIKey),
	)

	group.POST("/keepalive", handleKeepalive(cfg))
	group.GET("/status", handleStatus(cfg))
	group.GET("/clients/:id", handleClientDetail(cfg))

	return r
}

func handleKeepalive(cfg APIConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var k payload.Keepalive
		if err := c.ShouldBindJSON(&k); err != nil {
			abortJSON(c, vpnerr.Validation("malformed keepalive body: %v", err))
			return
		}

		now := time.Now()
		normalized, verr := payload.Normalize(k, now)
		if verr != nil {
			abortJSON(c, verr)
			return
		}

		events := cfg.Registry.Apply(normalized)
		for _, ev := range events {
			if cfg.Notifier != nil {
				cfg.Notifier.NotifyEvent(context.Background(), ev)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"server_time": now.Format(time.RFC3339),
		})
	}
}

func handleStatus(cfg APIConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		records := cfg.Registry.Snapshot()
		ip, country, city, dnsLoc := "", "", "", ""
		if cfg.SelfView != nil {
			ip, country, city, dnsLoc = cfg.SelfView.Snapshot()
		}
		c.JSON(http.StatusOK, gin.H{
			"clients": records,
			"server": gin.H{
				"ip":           ip,
				"country":      country,
				"city":         city,
				"dns_location": dnsLoc,
			},
		})
	}
}

func handleClientDetail(cfg APIConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := cfg.Registry.Get(c.Param("id"))
		if !ok {
			abortJSON(c, vpnerr.Validation("unknown client_id %q", c.Param("id")))
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// Package config loads the server and client environment-variable
// contracts into typed structs via github.com/caarlos0/env/v7, the same
// loader AdGuardDNS uses for its own service configuration.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v7"

	"github.com/vpnsentinel/vpnsentinel/internal/vpnerr"
)

// NotifyMode is the notifier's tri-state enable switch.
type NotifyMode string

const (
	NotifyAuto NotifyMode = "auto"
	NotifyOn   NotifyMode = "true"
	NotifyOff  NotifyMode = "false"
)

// Server holds every environment-variable-controlled setting the central
// server reads at startup.
type Server struct {
	APIAddr       string `env:"VPNSENTINEL_API_ADDR" envDefault:":8443"`
	HealthAddr    string `env:"VPNSENTINEL_HEALTH_ADDR" envDefault:":8080"`
	DashboardAddr string `env:"VPNSENTINEL_DASHBOARD_ADDR" envDefault:":8081"`
	APIPath       string `env:"VPNSENTINEL_API_PATH" envDefault:"/api/v1"`

	APIKey string `env:"VPNSENTINEL_API_KEY" envDefault:""`

	RateLimitPerMinute int `env:"VPNSENTINEL_RATE_LIMIT" envDefault:"30"`

	OfflineThreshold time.Duration `env:"VPNSENTINEL_OFFLINE_THRESHOLD_SECONDS" envDefault:"300s"`
	SweepInterval    time.Duration `env:"VPNSENTINEL_SWEEP_INTERVAL_SECONDS" envDefault:"60s"`

	NotifyEnabled NotifyMode `env:"VPNSENTINEL_NOTIFY_ENABLED" envDefault:"auto"`
	BotToken      string     `env:"VPNSENTINEL_BOT_TOKEN" envDefault:""`
	ChatID        int64      `env:"VPNSENTINEL_CHAT_ID" envDefault:"0"`

	IPAllowlist string `env:"VPNSENTINEL_IP_ALLOWLIST" envDefault:""`

	DashboardEnabled bool `env:"VPNSENTINEL_DASHBOARD_ENABLED" envDefault:"true"`

	LogFormat string `env:"VPNSENTINEL_LOG_FORMAT" envDefault:"json"`

	CommitHash string `env:"VPNSENTINEL_COMMIT_HASH" envDefault:""`
}

// LoadServer parses process environment variables into a Server config
// and validates the notifier tri-state: an explicit "true" demands bot
// credentials, and their absence is a fatal startup error.
func LoadServer() (*Server, error) {
	cfg := &Server{}
	if err := env.Parse(cfg); err != nil {
		return nil, vpnerr.Config("parsing server environment", err)
	}

	switch cfg.NotifyEnabled {
	case NotifyOn:
		if cfg.BotToken == "" || cfg.ChatID == 0 {
			return nil, vpnerr.Config(
				"VPNSENTINEL_NOTIFY_ENABLED=true requires VPNSENTINEL_BOT_TOKEN and VPNSENTINEL_CHAT_ID", nil)
		}
	case NotifyOff, NotifyAuto:
		// no required credentials; auto resolves at wiring time.
	default:
		return nil, vpnerr.Config(fmt.Sprintf("invalid VPNSENTINEL_NOTIFY_ENABLED %q", cfg.NotifyEnabled), nil)
	}

	return cfg, nil
}

// NotifierActive resolves the tri-state against credential presence, as
// specified: auto enables iff both token and chat id are present.
func (s *Server) NotifierActive() bool {
	switch s.NotifyEnabled {
	case NotifyOn:
		return true
	case NotifyOff:
		return false
	default: // auto
		return s.BotToken != "" && s.ChatID != 0
	}
}

// Client holds the agent-side environment contract.
type Client struct {
	ServerURL     string        `env:"VPNSENTINEL_SERVER_URL,required"`
	APIPath       string        `env:"VPNSENTINEL_API_PATH" envDefault:"/api/v1"`
	APIKey        string        `env:"VPNSENTINEL_API_KEY" envDefault:""`
	ClientID      string        `env:"VPNSENTINEL_CLIENT_ID" envDefault:""`
	CheckInterval time.Duration `env:"VPNSENTINEL_CHECK_INTERVAL_SECONDS" envDefault:"300s"`
	GeoProvider   string        `env:"VPNSENTINEL_GEO_PROVIDER" envDefault:"auto"`
	TLSCAPath     string        `env:"VPNSENTINEL_TLS_CA_PATH" envDefault:""`
	Insecure      bool          `env:"VPNSENTINEL_INSECURE" envDefault:"false"`
	HealthAddr    string        `env:"VPNSENTINEL_CLIENT_HEALTH_ADDR" envDefault:""`
	ClientVersion string        `env:"VPNSENTINEL_CLIENT_VERSION" envDefault:"dev"`
}

// LoadClient parses process environment variables into a Client config.
func LoadClient() (*Client, error) {
	cfg := &Client{}
	if err := env.Parse(cfg); err != nil {
		return nil, vpnerr.Config("parsing client environment", err)
	}
	if cfg.Insecure && cfg.TLSCAPath != "" {
		return nil, vpnerr.Config("VPNSENTINEL_INSECURE and VPNSENTINEL_TLS_CA_PATH are mutually exclusive", nil)
	}
	return cfg, nil
}

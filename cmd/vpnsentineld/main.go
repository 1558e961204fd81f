// Command vpnsentineld runs the central server: three independent HTTP
// listeners (authenticated API, public health, public dashboard) plus
// two background workers (offline sweep, chat-bot inbound poll), wired
// entirely from its environment-variable configuration.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vpnsentinel/vpnsentinel/internal/config"
	"github.com/vpnsentinel/vpnsentinel/internal/geoloc"
	"github.com/vpnsentinel/vpnsentinel/internal/httpapi"
	"github.com/vpnsentinel/vpnsentinel/internal/notifier"
	"github.com/vpnsentinel/vpnsentinel/internal/ratelimit"
	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

// shutdownGrace is the drain period every listener gets on SIGINT/SIGTERM
// before its connections are forcibly closed.
const shutdownGrace = 5 * time.Second

var (
	version = "dev"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogFormat)
	logger.Info("starting vpnsentineld", "version", version)
	if cfg.APIKey == "" {
		logger.Warn("VPNSENTINEL_API_KEY is empty: API authentication is disabled")
	}

	selfView := registry.NewSelfView(selfFetcher(), registry.DefaultSelfViewTTL)
	selfView.Refresh()

	reg := registry.New(selfView)
	limiter := ratelimit.New(cfg.RateLimitPerMinute)

	notify, bot := buildNotifier(cfg, logger, selfView)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiSrv := newServer(cfg.APIAddr, httpapi.NewAPIRouter(httpapi.APIConfig{
		Path:      cfg.APIPath,
		APIKey:    cfg.APIKey,
		Allowlist: splitAllowlist(cfg.IPAllowlist),
		RateLimit: limiter,
		Registry:  reg,
		SelfView:  selfView,
		Notifier:  notify,
		Logger:    logger,
	}))
	healthSrv := newServer(cfg.HealthAddr, httpapi.NewHealthRouter())

	var dashboardSrv *http.Server
	if cfg.DashboardEnabled {
		dashboardSrv = newServer(cfg.DashboardAddr, httpapi.NewDashboardRouter(reg, selfView))
	}

	runListener(logger, "api", apiSrv)
	runListener(logger, "health", healthSrv)
	if dashboardSrv != nil {
		runListener(logger, "dashboard", dashboardSrv)
	}

	go sweepLoop(ctx, reg, notify, cfg.OfflineThreshold, cfg.SweepInterval, logger)
	if bot != nil {
		go notifier.RunInbound(ctx, bot, reg, logger)
	}

	notify.NotifyServerStarted()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining listeners")

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	for name, srv := range map[string]*http.Server{"api": apiSrv, "health": healthSrv} {
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error("listener shutdown error", "listener", name, "error", err)
		}
	}
	if dashboardSrv != nil {
		if err := dashboardSrv.Shutdown(drainCtx); err != nil {
			logger.Error("listener shutdown error", "listener", "dashboard", "error", err)
		}
	}
	logger.Info("shutdown complete")
}

func newLogger(format string) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.New(handler).With("component", "vpnsentineld")
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func runListener(logger *slog.Logger, name string, srv *http.Server) {
	go func() {
		logger.Info("listener starting", "listener", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listener stopped", "listener", name, "error", err)
		}
	}()
}

func sweepLoop(ctx context.Context, reg *registry.Registry, notify *notifier.Notifier, threshold, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			events := reg.Sweep(now, threshold)
			for _, ev := range events {
				notify.NotifyEvent(ctx, ev)
			}
		}
	}
}

// buildNotifier resolves the tri-state VPNSENTINEL_NOTIFY_ENABLED switch
// and constructs the Telegram transport when active. bot is nil whenever
// notifications are disabled, which also disables the inbound poll loop.
func buildNotifier(cfg *config.Server, logger *slog.Logger, selfView *registry.SelfView) (*notifier.Notifier, *tgbotapi.BotAPI) {
	active := cfg.NotifierActive()

	var sender notifier.Sender
	var bot *tgbotapi.BotAPI
	if active {
		s, b, err := notifier.NewTelegramSender(cfg.BotToken)
		if err != nil {
			logger.Error("telegram sender init failed, notifications disabled", "error", err)
			active = false
		} else {
			sender, bot = s, b
		}
	}

	n := notifier.New(notifier.Config{
		Sender:           sender,
		ChatID:           cfg.ChatID,
		Enabled:          active,
		Logger:           logger,
		SelfView:         selfView,
		Version:          version,
		Commit:           cfg.CommitHash,
		OfflineThreshold: cfg.OfflineThreshold,
		SweepInterval:    cfg.SweepInterval,
	})
	return n, bot
}

func splitAllowlist(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// selfFetcher resolves the server's own public IP/geolocation and DNS
// trace the same way a client agent does, for SelfView's periodic
// refresh.
func selfFetcher() registry.SelfViewFetcher {
	resolver, buildErr := geoloc.NewResolver("auto")
	return func() (ip, country, city, dnsLocation string, err error) {
		if buildErr != nil {
			return "", "", "", "", buildErr
		}
		result, err := resolver.Resolve(context.Background())
		if err != nil {
			return "", "", "", "", err
		}
		trace, traceErr := geoloc.FetchTrace(context.Background(), http.DefaultClient, "")
		dnsLoc := ""
		if traceErr == nil {
			dnsLoc = trace.Location
		}
		return result.Location.PublicIP, result.Location.Country, result.Location.City, dnsLoc, nil
	}
}

// Command vpnsentinel-agent runs the client-side sampling loop: resolve
// this machine's public IP/geolocation and DNS resolver location, then
// keep the central server informed on a fixed interval.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vpnsentinel/vpnsentinel/internal/clientagent"
	"github.com/vpnsentinel/vpnsentinel/internal/config"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	a, err := clientagent.New(cfg, logger)
	if err != nil {
		logger.Error("agent init failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HealthAddr != "" {
		go func() {
			if err := a.ServeHealth(ctx, cfg.HealthAddr); err != nil {
				logger.Error("health listener stopped", "error", err)
			}
		}()
	}

	a.Run(ctx)
	logger.Info("agent stopped")
}

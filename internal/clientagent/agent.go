// Package clientagent implements the client-side sampling loop: resolve
// the agent's own public IP/geolocation and DNS resolver location,
// build a keepalive, and POST it to the central server on a fixed
// interval. It generalizes the teacher's examples/scenarios demo loop
// (generate events on a ticker, print the result) into a real network
// client against internal/geoloc.
package clientagent

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/vpnsentinel/vpnsentinel/internal/config"
	"github.com/vpnsentinel/vpnsentinel/internal/geoloc"
	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

// httpTimeout bounds a single keepalive POST, independent of the
// geolocation resolver's own budget.
const httpTimeout = 15 * time.Second

// shutdownGrace bounds the agent's optional local health listener drain
// on shutdown.
const shutdownGrace = 5 * time.Second

// Agent runs the sampling loop for one client identity.
type Agent struct {
	cfg      *config.Client
	resolver *geoloc.Resolver
	client   *http.Client
	logger   *slog.Logger
	traceURL string
}

// New builds an Agent from a parsed client config. If the operator left
// VPNSENTINEL_CLIENT_ID unset, it generates a random client_id that is
// kept for this process's lifetime (a restart yields a new one), and builds
// the outbound http.Client's transport from cfg.TLSCAPath/cfg.Insecure.
func New(cfg *config.Client, logger *slog.Logger) (*Agent, error) {
	resolver, err := geoloc.NewResolver(cfg.GeoProvider)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = generateClientID()
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: httpTimeout}
	if tlsConfig != nil {
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	return &Agent{
		cfg:      cfg,
		resolver: resolver,
		client:   httpClient,
		logger:   logger.With("component", "clientagent", "client_id", cfg.ClientID),
	}, nil
}

// buildTLSConfig translates cfg.TLSCAPath/cfg.Insecure into a
// *tls.Config for the agent's outbound transport. It returns nil when
// neither is set, so New falls back to http.Client's own default
// transport. An unreadable or unparseable CA bundle is a fatal config
// error: a silently-ignored bundle would make the agent trust whatever
// the platform default pool trusts instead of what the operator asked
// for.
func buildTLSConfig(cfg *config.Client) (*tls.Config, error) {
	if cfg.Insecure {
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	if cfg.TLSCAPath == "" {
		return nil, nil
	}

	pem, err := os.ReadFile(cfg.TLSCAPath)
	if err != nil {
		return nil, fmt.Errorf("reading TLS CA bundle %q: %w", cfg.TLSCAPath, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("TLS CA bundle %q contains no usable certificates", cfg.TLSCAPath)
	}
	return &tls.Config{RootCAs: pool}, nil
}

// generateClientID produces a kebab-case identifier matching the
// [a-z0-9-]{1,64} client_id contract, used when the operator hasn't
// pinned one explicitly.
func generateClientID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("agent-%x", buf)
}

// Run ticks every cfg.CheckInterval until ctx is canceled, sampling and
// posting a keepalive each time. A single failed sample or POST is
// logged and retried on the next tick; it never stops the loop.
func (a *Agent) Run(ctx context.Context) {
	a.sampleOnce(ctx)

	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sampleOnce(ctx)
		}
	}
}

func (a *Agent) sampleOnce(ctx context.Context) {
	k, err := a.buildKeepalive(ctx)
	if err != nil {
		a.logger.Error("sampling failed", "error", err)
		return
	}
	if err := a.post(ctx, k); err != nil {
		a.logger.Error("keepalive post failed", "error", err)
		return
	}
	a.logger.Info("keepalive sent", "public_ip", k.PublicIP, "country", k.Location.Country)
}

// buildKeepalive runs the geolocation resolver and the DNS-trace probe
// and assembles the wire payload. A DNS-trace failure degrades to an
// empty DNS location rather than aborting the sample; the server
// classifies that as DNS_UNKNOWN rather than rejecting the keepalive.
func (a *Agent) buildKeepalive(ctx context.Context) (payload.Keepalive, error) {
	result, err := a.resolver.Resolve(ctx)
	if err != nil {
		return payload.Keepalive{}, err
	}

	trace, err := geoloc.FetchTrace(ctx, a.client, a.traceURL)
	if err != nil {
		a.logger.Warn("dns trace failed, reporting DNS_UNKNOWN", "error", err)
	}

	return payload.Keepalive{
		ClientID:      a.cfg.ClientID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		PublicIP:      result.Location.PublicIP,
		Status:        "alive",
		ClientVersion: a.cfg.ClientVersion,
		Location: payload.Location{
			Country:  result.Location.Country,
			City:     result.Location.City,
			Region:   result.Location.Region,
			Org:      result.Location.Org,
			Timezone: result.Location.Timezone,
		},
		DNSTest: payload.DNSTest{
			Location: trace.Location,
			Colo:     trace.Colo,
		},
	}, nil
}

func (a *Agent) post(ctx context.Context, k payload.Keepalive) error {
	body, err := json.Marshal(k)
	if err != nil {
		return err
	}

	url := strings.TrimRight(a.cfg.ServerURL, "/") + a.cfg.APIPath + "/keepalive"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", a.cfg.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("keepalive post: server returned status %d", resp.StatusCode)
	}
	return nil
}

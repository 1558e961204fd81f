package geoloc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vpnsentinel/vpnsentinel/internal/vpnerr"
)

// Resolver fetches a Location by trying providers in order (auto) or a
// single named provider (forced), under the overall totalBudget.
type Resolver struct {
	providers []Provider
	forced    string
	client    *http.Client
}

// NewResolver builds a Resolver. An empty or "auto" mode tries
// DefaultProviders() in order; any other value forces that single named
// provider with no fallback.
func NewResolver(mode string) (*Resolver, error) {
	r := &Resolver{client: &http.Client{}}
	if mode == "" || mode == "auto" {
		r.providers = DefaultProviders()
		return r, nil
	}
	p, ok := ByName(mode)
	if !ok {
		return nil, vpnerr.Config(fmt.Sprintf("unknown geolocation provider %q", mode), nil)
	}
	r.providers = []Provider{p}
	r.forced = mode
	return r, nil
}

// Result carries the resolved Location plus which provider succeeded,
// for logging.
type Result struct {
	Location Location
	Provider string
}

// Resolve tries each configured provider in order within totalBudget,
// returning the first successful 2xx+parseable response. In forced mode
// a single failure is returned directly with no fallback.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, totalBudget)
	defer cancel()

	var lastErr error
	for _, p := range r.providers {
		loc, err := p.Fetch(ctx, r.client)
		if err != nil {
			lastErr = vpnerr.Upstream(fmt.Sprintf("geolocation provider %s failed", p.Name()), err)
			if r.forced != "" {
				return Result{}, lastErr
			}
			continue
		}
		return Result{Location: loc, Provider: p.Name()}, nil
	}
	if lastErr == nil {
		lastErr = vpnerr.Upstream("no geolocation providers configured", nil)
	}
	return Result{}, lastErr
}

// Package geoloc implements the client's geolocation provider fallback
// chain and DNS-trace probe. Each provider is a pure function from a
// raw HTTP response to a normalized Location, the same shape the
// teacher's pkg/geoip.Service.GetLocation returns from a local MaxMind
// lookup — here sourced from a live third-party API instead.
package geoloc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// perCallTimeout bounds a single provider request; totalBudget bounds
// the whole fallback chain.
const (
	perCallTimeout = 10 * time.Second
	totalBudget    = 30 * time.Second
)

// Location is the normalized {public_ip, country, city, region, org,
// timezone} tuple a provider yields. Its fields are not sanitized here
// or by the client agent; control-character stripping and the length
// cap happen on the server, in payload.Normalize.
type Location struct {
	PublicIP string
	Country  string
	City     string
	Region   string
	Org      string
	Timezone string
}

// Provider fetches and normalizes a Location from one geolocation API.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, client *http.Client) (Location, error)
}

// Default field values used when a provider omits a field: the literal
// Unknown, or unknown for public_ip.
const (
	unknownField = "Unknown"
	unknownIP    = "unknown"
)

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownField
	}
	return s
}

func orUnknownIP(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownIP
	}
	return s
}

// fetchJSON GETs url with a per-call timeout and decodes the JSON body
// into dst.
func fetchJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

package geoloc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vpnsentinel/vpnsentinel/internal/vpnerr"
)

// DefaultTraceURL is the well-known line-oriented trace endpoint used to
// determine which country and data center the client's DNS resolver
// actually egresses through.
const DefaultTraceURL = "https://www.cloudflare.com/cdn-cgi/trace"

// TraceResult is the parsed {location, colo} tuple of a DNS trace probe.
type TraceResult struct {
	Location string // 2-letter ISO code
	Colo     string // 3-letter data-center code
}

// FetchTrace GETs traceURL and parses its "key=value" lines for loc= and
// colo=, within the per-call timeout.
func FetchTrace(ctx context.Context, client *http.Client, traceURL string) (TraceResult, error) {
	if traceURL == "" {
		traceURL = DefaultTraceURL
	}
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, traceURL, nil)
	if err != nil {
		return TraceResult{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return TraceResult{}, vpnerr.Upstream("dns trace request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TraceResult{}, vpnerr.Upstream(fmt.Sprintf("dns trace returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return TraceResult{}, err
	}

	var out TraceResult
	for _, line := range strings.Split(string(body), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch k {
		case "loc":
			out.Location = strings.ToUpper(strings.TrimSpace(v))
		case "colo":
			out.Colo = strings.ToUpper(strings.TrimSpace(v))
		}
	}
	return out, nil
}

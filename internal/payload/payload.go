// Package payload defines the keepalive wire contract and its
// validation/sanitization rules. It replaces the teacher's dynamic
// gin.H-shaped request handling with a tagged struct decoded once at the
// edge; everything past this package operates on typed values only.
package payload

import (
	"regexp"
	"strings"
	"time"

	"github.com/vpnsentinel/vpnsentinel/internal/vpnerr"
)

// maxFieldLen caps every sanitized string field at 100 characters.
const maxFieldLen = 100

var clientIDPattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// Location is the {country, city, region, org, timezone} tuple reported
// by the client's geolocation provider.
type Location struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Org      string `json:"org"`
	Timezone string `json:"timezone"`
}

// DNSTest is the {location, colo} tuple reported by the DNS-trace probe.
type DNSTest struct {
	Location string `json:"location"`
	Colo     string `json:"colo"`
}

// Keepalive is the client -> server wire payload.
type Keepalive struct {
	ClientID      string   `json:"client_id" binding:"required"`
	Timestamp     string   `json:"timestamp" binding:"required"`
	PublicIP      string   `json:"public_ip"`
	Status        string   `json:"status" binding:"required"`
	ClientVersion string   `json:"client_version"`
	Location      Location `json:"location"`
	DNSTest       DNSTest  `json:"dns_test"`
}

// Normalized is a Keepalive after validation and sanitization: the form
// every downstream component (registry, transition engine, notifier)
// actually consumes.
type Normalized struct {
	ClientID      string
	ServerTime    time.Time // server-arrival instant; authoritative for ordering
	ClientTime    time.Time // the client's claimed timestamp, parsed but not trusted
	PublicIP      string
	Status        string
	ClientVersion string
	Location      Location
	DNSTest       DNSTest
}

// Validate checks the wire-contract constraints and returns a typed
// ValidationError on the first violation found.
func (k Keepalive) Validate() error {
	id := strings.ToLower(strings.TrimSpace(k.ClientID))
	if !clientIDPattern.MatchString(id) {
		return vpnerr.Validation("client_id must match [a-z0-9-]{1,64}, got %q", k.ClientID)
	}
	if _, err := time.Parse(time.RFC3339, k.Timestamp); err != nil {
		return vpnerr.Validation("timestamp must be ISO-8601 with timezone: %v", err)
	}
	if k.Status != "alive" {
		return vpnerr.Validation("status must be \"alive\", got %q", k.Status)
	}
	return nil
}

// sanitize strips ASCII control characters and caps length at
// maxFieldLen.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if runes := []rune(out); len(runes) > maxFieldLen {
		out = string(runes[:maxFieldLen])
	}
	return out
}

// Normalize validates, then converts a Keepalive into its Normalized form.
// serverNow is the server-local arrival instant, which is authoritative
// for ordering regardless of the client's claimed timestamp: a
// clock-skewed or malicious client must never control sweep timing.
func Normalize(k Keepalive, serverNow time.Time) (Normalized, error) {
	if err := k.Validate(); err != nil {
		return Normalized{}, err
	}

	clientTime, _ := time.Parse(time.RFC3339, k.Timestamp) // already validated above

	publicIP := strings.TrimSpace(k.PublicIP)
	if publicIP == "" {
		publicIP = "unknown"
	}

	n := Normalized{
		ClientID:      strings.ToLower(strings.TrimSpace(k.ClientID)),
		ServerTime:    serverNow,
		ClientTime:    clientTime,
		PublicIP:      publicIP,
		Status:        k.Status,
		ClientVersion: sanitize(k.ClientVersion),
		Location: Location{
			Country:  sanitize(k.Location.Country),
			City:     sanitize(k.Location.City),
			Region:   sanitize(k.Location.Region),
			Org:      sanitize(k.Location.Org),
			Timezone: sanitize(k.Location.Timezone),
		},
		DNSTest: DNSTest{
			Location: sanitize(strings.ToUpper(k.DNSTest.Location)),
			Colo:     sanitize(strings.ToUpper(k.DNSTest.Colo)),
		},
	}
	if n.ClientVersion == "" {
		n.ClientVersion = "Unknown"
	}
	return n, nil
}

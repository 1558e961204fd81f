// message.go renders and parses the HTML notification bodies. Every kind
// emits a fixed-order set of "Label: value" lines wrapped in minimal
// HTML; Parse strips the markup back out so rendering can be tested by
// round-tripping a message back into its labeled fields.
package notifier

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

// field is one labeled line of a rendered message.
type field struct {
	label string
	value string
}

func render(title string, fields []field) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>\n")
	for _, f := range fields {
		b.WriteString(html.EscapeString(f.label))
		b.WriteString(": ")
		b.WriteString(html.EscapeString(f.value))
		b.WriteString("\n")
	}
	return b.String()
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)
var linePattern = regexp.MustCompile(`^([^:]+):\s*(.*)$`)

// Parse extracts every "Label: value" line from a rendered message,
// stripping HTML tags and unescaping entities first.
func Parse(msg string) map[string]string {
	out := make(map[string]string)
	stripped := tagPattern.ReplaceAllString(msg, "")
	for _, line := range strings.Split(stripped, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out[html.UnescapeString(m[1])] = html.UnescapeString(m[2])
	}
	return out
}

func locationLine(rec registry.ClientRecord) string {
	loc := rec.LastSample.Location
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func dnsLine(rec registry.ClientRecord) string {
	return fmt.Sprintf("%s (%s)", rec.LastSample.DNSTest.Location, rec.LastSample.DNSTest.Colo)
}

func classificationLine(class registry.Class) string {
	return string(class)
}

// commonConnectedFields builds the shared field set used by Connected,
// IPChanged, DNSLeak and DNSUnknown: IPChanged adds the previous/current
// IP on top of these, and Connected/DNSLeak/DNSUnknown use them with
// their own title, adding the previous/current IP only when the event
// also carries an IP change.
func commonConnectedFields(rec registry.ClientRecord, class registry.Class) []field {
	return []field{
		{"Client", rec.ClientID},
		{"Version", orUnknownVersion(rec.ClientVersion)},
		{"Public IP", rec.PublicIP},
		{"Location", locationLine(rec)},
		{"Provider", orUnknownVersion(rec.LastSample.Location.Org)},
		{"DNS location", dnsLine(rec)},
		{"Classification", classificationLine(class)},
	}
}

func orUnknownVersion(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// RenderConnected renders "connected (secure)" and its analogues for a
// class-entry transition out of NEW/OFFLINE or a prior ONLINE_* state.
func RenderConnected(ev registry.Event) string {
	fields := commonConnectedFields(ev.Record, ev.Class)
	if ev.IPChanged {
		fields = append([]field{
			{"Previous IP", ev.PreviousIP},
			{"Current IP", ev.Record.PublicIP},
		}, fields...)
	}
	return render("🔒 Connected", fields)
}

// RenderIPChanged renders the same-class, changed-IP notification.
func RenderIPChanged(ev registry.Event) string {
	fields := append([]field{
		{"Previous IP", ev.PreviousIP},
		{"Current IP", ev.Record.PublicIP},
	}, commonConnectedFields(ev.Record, ev.Class)...)
	return render("🔁 IP changed", fields)
}

// RenderDNSLeak renders a DNS-leak classification.
func RenderDNSLeak(ev registry.Event) string {
	fields := commonConnectedFields(ev.Record, ev.Class)
	if ev.IPChanged {
		fields = append([]field{
			{"Previous IP", ev.PreviousIP},
			{"Current IP", ev.Record.PublicIP},
		}, fields...)
	}
	return render("⚠️ DNS leak detected", fields)
}

// RenderDNSUnknown renders a DNS-unknown classification.
func RenderDNSUnknown(ev registry.Event) string {
	fields := commonConnectedFields(ev.Record, ev.Class)
	if ev.IPChanged {
		fields = append([]field{
			{"Previous IP", ev.PreviousIP},
			{"Current IP", ev.Record.PublicIP},
		}, fields...)
	}
	return render("❔ DNS status unknown", fields)
}

// RenderBypass renders the critical VPN-bypass notification.
func RenderBypass(ev registry.Event, serverIP string) string {
	return render("🚨 Critical: VPN bypass", []field{
		{"Client", ev.Record.ClientID},
		{"Client IP", ev.Record.PublicIP},
		{"Server IP", serverIP},
		{"Location", locationLine(ev.Record)},
		{"Warning", "Client traffic is not routed through the VPN tunnel"},
	})
}

// RenderOffline renders an offline notification with both an absolute
// and a humanized last-seen value.
func RenderOffline(ev registry.Event, now time.Time) string {
	return render("📴 Offline", []field{
		{"Client", ev.Record.ClientID},
		{"Last seen", ev.Record.LastSeen.Format(time.RFC3339)},
		{"Last seen (relative)", Humanize(ev.Record.LastSeen, now)},
	})
}

// RenderServerStarted renders the one-time startup announcement.
func RenderServerStarted(version, commit string, offlineThreshold, sweepInterval time.Duration) string {
	return render("✅ Server started", []field{
		{"Version", orUnknownVersion(version)},
		{"Commit", orUnknownVersion(commit)},
		{"Offline threshold", offlineThreshold.String()},
		{"Sweep interval", sweepInterval.String()},
	})
}

// RenderNoClientsAlive renders the "nothing has been online" alert.
func RenderNoClientsAlive(at time.Time) string {
	return render("💤 No clients alive", []field{
		{"Timestamp", at.Format(time.RFC3339)},
	})
}

// Humanize renders a duration-since-now as "just now", "N min ago",
// "Nh ago" or, from 48 hours on, "Nd ago", matching the dashboard's
// last-seen column.
func Humanize(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 30*time.Second:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

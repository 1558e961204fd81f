package notifier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vpnsentinel/vpnsentinel/internal/notifier"
	"github.com/vpnsentinel/vpnsentinel/internal/payload"
	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

func sampleEvent() registry.Event {
	return registry.Event{
		Kind:       registry.EventConnected,
		ClientID:   "laptop-1",
		PreviousIP: "198.51.100.1",
		IPChanged:  false,
		Class:      registry.ClassSecure,
		Record: registry.ClientRecord{
			ClientID:      "laptop-1",
			ClientVersion: "1.2.3",
			PublicIP:      "198.51.100.2",
			State:         registry.StateOnlineSecure,
			LastSample: payload.Normalized{
				Location: payload.Location{City: "Bucharest", Region: "B", Country: "RO", Org: "Some VPN SRL"},
				DNSTest:  payload.DNSTest{Location: "RO", Colo: "OTP"},
			},
		},
	}
}

func TestRenderConnected_RoundTripsLabeledFields(t *testing.T) {
	ev := sampleEvent()
	rendered := notifier.RenderConnected(ev)

	parsed := notifier.Parse(rendered)
	assert.Equal(t, "laptop-1", parsed["Client"])
	assert.Equal(t, "1.2.3", parsed["Version"])
	assert.Equal(t, "198.51.100.2", parsed["Public IP"])
	assert.Equal(t, "Bucharest, B, RO", parsed["Location"])
	assert.Equal(t, "Some VPN SRL", parsed["Provider"])
	assert.Equal(t, "RO (OTP)", parsed["DNS location"])
	assert.Equal(t, "SECURE", parsed["Classification"])
}

func TestRenderIPChanged_IncludesPreviousAndCurrentIP(t *testing.T) {
	ev := sampleEvent()
	ev.Kind = registry.EventIPChanged
	ev.IPChanged = true

	parsed := notifier.Parse(notifier.RenderIPChanged(ev))
	assert.Equal(t, "198.51.100.1", parsed["Previous IP"])
	assert.Equal(t, "198.51.100.2", parsed["Current IP"])
}

func TestRenderBypass_IncludesServerIP(t *testing.T) {
	ev := sampleEvent()
	ev.Kind = registry.EventBypass
	ev.Class = registry.ClassBypass

	parsed := notifier.Parse(notifier.RenderBypass(ev, "203.0.113.5"))
	assert.Equal(t, "203.0.113.5", parsed["Server IP"])
	assert.Equal(t, "laptop-1", parsed["Client"])
}

func TestRenderOffline_IncludesAbsoluteAndRelative(t *testing.T) {
	ev := sampleEvent()
	now := time.Now()
	ev.Record.LastSeen = now.Add(-10 * time.Minute)

	parsed := notifier.Parse(notifier.RenderOffline(ev, now))
	assert.Equal(t, ev.Record.LastSeen.Format(time.RFC3339), parsed["Last seen"])
	assert.Equal(t, "10 min ago", parsed["Last seen (relative)"])
}

func TestHumanize(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", notifier.Humanize(now.Add(-2*time.Second), now))
	assert.Equal(t, "5 min ago", notifier.Humanize(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", notifier.Humanize(now.Add(-3*time.Hour), now))
}

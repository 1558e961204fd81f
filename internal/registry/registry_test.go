package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

func newTestRegistry() *Registry {
	sv := NewSelfView(func() (string, string, string, string, error) {
		return "203.0.113.5", "US", "Ashburn", "US", nil
	}, time.Hour)
	sv.Refresh()
	return New(sv)
}

func keepalive(id, ip, country, dnsLoc string, at time.Time) payload.Normalized {
	return payload.Normalized{
		ClientID:      id,
		ServerTime:    at,
		PublicIP:      ip,
		ClientVersion: "1.0",
		Location:      payload.Location{Country: country},
		DNSTest:       payload.DNSTest{Location: dnsLoc},
	}
}

func TestApply_FalsePositiveGuardProducesOneSecureConnect(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	ev1 := r.Apply(keepalive("laptop-1", "198.51.100.9", "Romania", "RO", now))
	require.Len(t, ev1, 1)
	assert.Equal(t, EventConnected, ev1[0].Kind)

	ev2 := r.Apply(keepalive("laptop-1", "198.51.100.9", "Romania", "RO", now.Add(time.Minute)))
	assert.Empty(t, ev2, "steady-state secure observation must not re-notify")
}

func TestApply_TrueLeak(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	events := r.Apply(keepalive("laptop-2", "198.51.100.9", "ES", "DE", now))
	require.Len(t, events, 1)
	assert.Equal(t, EventDNSLeak, events[0].Kind)
}

func TestApply_Bypass(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	events := r.Apply(keepalive("laptop-3", "203.0.113.5", "ES", "DE", now))
	require.Len(t, events, 1)
	assert.Equal(t, EventBypass, events[0].Kind)
}

func TestApply_IPChangeWithinSameClass(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	first := r.Apply(keepalive("laptop-4", "198.51.100.1", "RO", "RO", now))
	require.Len(t, first, 1)
	assert.Equal(t, EventConnected, first[0].Kind)

	second := r.Apply(keepalive("laptop-4", "198.51.100.2", "RO", "RO", now.Add(time.Minute)))
	require.Len(t, second, 1)
	assert.Equal(t, EventIPChanged, second[0].Kind)
	assert.Equal(t, "198.51.100.1", second[0].PreviousIP)
}

func TestApply_ConsolidatedIPAndClassChange(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	r.Apply(keepalive("laptop-5", "198.51.100.1", "RO", "RO", now))
	events := r.Apply(keepalive("laptop-5", "198.51.100.2", "ES", "DE", now.Add(time.Minute)))

	require.Len(t, events, 1)
	assert.Equal(t, EventDNSLeak, events[0].Kind)
	assert.True(t, events[0].IPChanged)
	assert.Equal(t, "198.51.100.1", events[0].PreviousIP)
}

func TestApply_Idempotence(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	r.Apply(keepalive("laptop-6", "198.51.100.1", "RO", "RO", now))
	repeat := r.Apply(keepalive("laptop-6", "198.51.100.1", "RO", "RO", now))
	assert.Empty(t, repeat)
}

func TestApply_LastSeenMonotonic(t *testing.T) {
	r := newTestRegistry()
	t0 := time.Now()

	r.Apply(keepalive("laptop-7", "198.51.100.1", "RO", "RO", t0))
	rec, ok := r.Get("laptop-7")
	require.True(t, ok)
	firstSeen := rec.LastSeen

	r.Apply(keepalive("laptop-7", "198.51.100.1", "RO", "RO", t0.Add(5*time.Second)))
	rec, ok = r.Get("laptop-7")
	require.True(t, ok)
	assert.True(t, !rec.LastSeen.Before(firstSeen))
}

func TestSweep_OfflineThenReturn(t *testing.T) {
	r := newTestRegistry()
	t0 := time.Now()

	r.Apply(keepalive("laptop-8", "198.51.100.1", "RO", "RO", t0))

	threshold := 5 * time.Minute
	later := t0.Add(threshold + time.Second)
	offlineEvents := r.Sweep(later, threshold)
	require.Len(t, offlineEvents, 1)
	assert.Equal(t, EventOffline, offlineEvents[0].Kind)

	rec, ok := r.Get("laptop-8")
	require.True(t, ok)
	assert.Equal(t, StateOffline, rec.State)
	assert.True(t, rec.OfflineNotified)

	// A sweep with nothing newly stale must not re-emit.
	assert.Empty(t, r.Sweep(later.Add(time.Second), threshold))

	// The client returns: offline_notified clears and a fresh connect fires.
	reconnect := r.Apply(keepalive("laptop-8", "198.51.100.1", "RO", "RO", later.Add(time.Minute)))
	require.Len(t, reconnect, 1)
	assert.Equal(t, EventConnected, reconnect[0].Kind)

	rec, ok = r.Get("laptop-8")
	require.True(t, ok)
	assert.False(t, rec.OfflineNotified)
}

func TestSweep_NoClientsAliveFiresOnceAfterThreshold(t *testing.T) {
	r := newTestRegistry()
	t0 := time.Now()
	threshold := 5 * time.Minute

	r.Apply(keepalive("laptop-9", "198.51.100.1", "RO", "RO", t0))
	later := t0.Add(threshold + time.Second)
	r.Sweep(later, threshold) // marks laptop-9 OFFLINE; no online clients remain from here

	evs := r.Sweep(later.Add(threshold+time.Second), threshold)
	var sawNoClients bool
	for _, e := range evs {
		if e.Kind == EventNoClientsAlive {
			sawNoClients = true
		}
	}
	assert.True(t, sawNoClients)

	// Must not repeat on the next sweep.
	evs = r.Sweep(later.Add(2*threshold), threshold)
	for _, e := range evs {
		assert.NotEqual(t, EventNoClientsAlive, e.Kind)
	}
}

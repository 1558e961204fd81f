// Package registry owns the in-memory set of ClientRecords, the
// per-client transition engine, the offline sweep, and the server's own
// self-view — the server-side heart of the monitor. It generalizes the
// teacher's pkg/engine (rule evaluation against a HistoryStore) into a
// stateful transition detector, and its pkg/storage.MemoryStore into the
// ClientRecord registry.
package registry

import (
	"time"

	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

// State is a ClientRecord's derived health class.
type State string

const (
	StateNew              State = "NEW"
	StateOnlineSecure     State = "ONLINE_SECURE"
	StateOnlineDNSLeak    State = "ONLINE_DNS_LEAK"
	StateOnlineDNSUnknown State = "ONLINE_DNS_UNKNOWN"
	StateOnlineBypass     State = "ONLINE_BYPASS"
	StateOffline          State = "OFFLINE"
)

// Class is the result of classifying a single observation.
type Class string

const (
	ClassSecure     Class = "SECURE"
	ClassDNSLeak    Class = "DNS_LEAK"
	ClassDNSUnknown Class = "DNS_UNKNOWN"
	ClassBypass     Class = "BYPASS"
)

func classToState(c Class) State {
	switch c {
	case ClassSecure:
		return StateOnlineSecure
	case ClassDNSLeak:
		return StateOnlineDNSLeak
	case ClassBypass:
		return StateOnlineBypass
	default:
		return StateOnlineDNSUnknown
	}
}

// ClientRecord is the server's persisted view of one client_id.
type ClientRecord struct {
	ClientID        string
	ClientVersion   string
	LastSample      payload.Normalized
	LastSeen        time.Time
	State           State
	PublicIP        string
	PreviousIP      string
	EverSeenOnline  bool
	OfflineNotified bool
}

// EventKind identifies which notifier message a transition should emit.
type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventDNSLeak        EventKind = "dns_leak"
	EventDNSUnknown     EventKind = "dns_unknown"
	EventBypass         EventKind = "bypass"
	EventIPChanged      EventKind = "ip_changed"
	EventOffline        EventKind = "offline"
	EventNoClientsAlive EventKind = "no_clients_alive"
	EventServerStarted  EventKind = "server_started"
)

func classKind(c Class) EventKind {
	switch c {
	case ClassSecure:
		return EventConnected
	case ClassDNSLeak:
		return EventDNSLeak
	case ClassBypass:
		return EventBypass
	default:
		return EventDNSUnknown
	}
}

// Event is one emitted transition, carrying everything the notifier needs
// to render a message without reaching back into the registry.
type Event struct {
	Kind       EventKind
	ClientID   string
	Record     ClientRecord
	PreviousIP string
	IPChanged  bool
	Class      Class
}

package registry

import (
	"sync"
	"time"

	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

// clientEntry pairs one ClientRecord with its own mutex, so that
// classification/mutation work for distinct clients can proceed in
// parallel while the registry's own map structure stays behind a single
// lock held only for lookups and inserts.
type clientEntry struct {
	mu     sync.Mutex
	record ClientRecord
}

// Registry owns the set of ClientRecords plus the bookkeeping needed for
// the offline-sweep's NoClientsAlive condition.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*clientEntry

	selfView *SelfView

	noClientsMu       sync.Mutex
	noClientsSince    time.Time
	noClientsNotified bool
}

// New creates an empty Registry bound to the given self-view, used for
// bypass detection during classification.
func New(selfView *SelfView) *Registry {
	return &Registry{
		clients:  make(map[string]*clientEntry),
		selfView: selfView,
	}
}

func (r *Registry) getOrCreate(clientID string) *clientEntry {
	r.mu.RLock()
	e, ok := r.clients[clientID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.clients[clientID]; ok {
		return e
	}
	e = &clientEntry{record: ClientRecord{ClientID: clientID, State: StateNew}}
	r.clients[clientID] = e
	return e
}

// Apply validates nothing itself (the caller hands in an already
// normalized payload); it looks up or creates the record, runs the
// transition engine, and returns whichever events the observation
// warrants (zero, one, or — for a simultaneous IP+class change — one
// consolidated event).
func (r *Registry) Apply(n payload.Normalized) []Event {
	entry := r.getOrCreate(n.ClientID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	rec := &entry.record
	prevState := rec.State
	prevIP := rec.PublicIP

	selfIP := ""
	if r.selfView != nil {
		selfIP = r.selfView.IP()
	}
	class := classify(selfIP, n)
	targetState := classToState(class)

	var events []Event

	switch prevState {
	case StateNew, StateOffline:
		rec.State = targetState
		events = append(events, Event{
			Kind:       classKind(class),
			ClientID:   n.ClientID,
			PreviousIP: prevIP,
			IPChanged:  false,
			Class:      class,
		})
	default:
		classChanged := targetState != prevState
		ipChanged := n.PublicIP != prevIP

		switch {
		case !classChanged && !ipChanged:
			// no event: steady state.
		case !classChanged && ipChanged:
			rec.State = prevState
			events = append(events, Event{
				Kind:       EventIPChanged,
				ClientID:   n.ClientID,
				PreviousIP: prevIP,
				IPChanged:  true,
				Class:      class,
			})
		case classChanged && !ipChanged:
			rec.State = targetState
			events = append(events, Event{
				Kind:       classKind(class),
				ClientID:   n.ClientID,
				PreviousIP: prevIP,
				IPChanged:  false,
				Class:      class,
			})
		default: // both changed: one consolidated notification.
			rec.State = targetState
			events = append(events, Event{
				Kind:       classKind(class),
				ClientID:   n.ClientID,
				PreviousIP: prevIP,
				IPChanged:  true,
				Class:      class,
			})
		}
	}

	rec.ClientID = n.ClientID
	rec.ClientVersion = n.ClientVersion
	rec.LastSample = n
	rec.LastSeen = n.ServerTime
	rec.PublicIP = n.PublicIP
	rec.PreviousIP = prevIP
	rec.EverSeenOnline = true
	rec.OfflineNotified = false

	for i := range events {
		events[i].Record = *rec
	}

	return events
}

// Snapshot returns a consistent point-in-time copy of every ClientRecord.
// It copies each record under its own short-held lock rather than the
// registry-wide lock, so it never blocks Apply for the duration of the
// whole copy.
func (r *Registry) Snapshot() []ClientRecord {
	r.mu.RLock()
	entries := make([]*clientEntry, 0, len(r.clients))
	for _, e := range r.clients {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]ClientRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.record)
		e.mu.Unlock()
	}
	return out
}

// Get returns a single ClientRecord by id.
func (r *Registry) Get(clientID string) (ClientRecord, bool) {
	r.mu.RLock()
	e, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return ClientRecord{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, true
}

// Sweep marks every record whose last_seen predates now-threshold as
// OFFLINE (once), and separately tracks the "no client has been online
// for longer than threshold" condition for a single NoClientsAlive
// notification, cleared as soon as any client is online again.
func (r *Registry) Sweep(now time.Time, threshold time.Duration) []Event {
	r.mu.RLock()
	entries := make([]*clientEntry, 0, len(r.clients))
	for _, e := range r.clients {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var events []Event
	anyOnline := false
	anyRecords := len(entries) > 0

	for _, entry := range entries {
		entry.mu.Lock()
		rec := &entry.record
		if rec.State != StateOffline && now.Sub(rec.LastSeen) > threshold {
			rec.State = StateOffline
			rec.OfflineNotified = true
			events = append(events, Event{
				Kind:     EventOffline,
				ClientID: rec.ClientID,
				Record:   *rec,
			})
		}
		if isOnlineState(rec.State) {
			anyOnline = true
		}
		entry.mu.Unlock()
	}

	r.noClientsMu.Lock()
	switch {
	case anyOnline || !anyRecords:
		r.noClientsSince = time.Time{}
		r.noClientsNotified = false
	case r.noClientsSince.IsZero():
		r.noClientsSince = now
	case !r.noClientsNotified && now.Sub(r.noClientsSince) > threshold:
		r.noClientsNotified = true
		events = append(events, Event{Kind: EventNoClientsAlive})
	}
	r.noClientsMu.Unlock()

	return events
}

func isOnlineState(s State) bool {
	switch s {
	case StateOnlineSecure, StateOnlineDNSLeak, StateOnlineDNSUnknown, StateOnlineBypass:
		return true
	default:
		return false
	}
}

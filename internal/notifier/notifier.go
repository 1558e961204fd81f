// Package notifier translates registry transitions into user-visible
// chat messages and answers inbound text commands. It generalizes the
// teacher's printResult demo helper (main.go) from a console printout
// into an outbound HTML message over a real transport.
package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

// pendingSend is the one message a client's last failed send left
// behind, eligible for exactly one retry attempt on that client's next
// transition.
type pendingSend struct {
	kind registry.EventKind
	text string
}

// Notifier is best-effort: a failed send is logged and never aborts the
// transition it describes. Per client_id it keeps the single most
// recent failed message and retries it, at most once, alongside the
// next transition for that same client.
type Notifier struct {
	sender  Sender
	chatID  int64
	enabled bool
	logger  *slog.Logger

	selfView *registry.SelfView

	version, commit                string
	offlineThreshold, sweepInterval time.Duration

	// sendMu serializes outbound sends so bursts of simultaneous
	// transitions respect the transport's own rate limit (<= 30
	// msgs/sec) without a growing internal queue.
	sendMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]pendingSend
}

// Config bundles the fixed, rarely-changing fields of a Notifier.
type Config struct {
	Sender           Sender
	ChatID           int64
	Enabled          bool
	Logger           *slog.Logger
	SelfView         *registry.SelfView
	Version          string
	Commit           string
	OfflineThreshold time.Duration
	SweepInterval    time.Duration
}

// New builds a Notifier. When cfg.Enabled is false, every Notify* call
// becomes a silent no-op — the tri-state resolution itself lives in
// internal/config.
func New(cfg Config) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:           cfg.Sender,
		chatID:           cfg.ChatID,
		enabled:          cfg.Enabled,
		logger:           logger.With("component", "notifier"),
		selfView:         cfg.SelfView,
		version:          cfg.Version,
		commit:           cfg.Commit,
		offlineThreshold: cfg.OfflineThreshold,
		sweepInterval:    cfg.SweepInterval,
		pending:          make(map[string]pendingSend),
	}
}

// send delivers text for the given client, first retrying that client's
// last failed message exactly once. A second consecutive failure drops
// the retry (it is not queued again) so a persistently unreachable
// transport can never build an unbounded backlog.
func (n *Notifier) send(ctx context.Context, kind registry.EventKind, clientID, text string) {
	if !n.enabled || n.sender == nil {
		return
	}
	n.sendMu.Lock()
	defer n.sendMu.Unlock()

	if clientID != "" {
		n.retryPendingLocked(ctx, clientID)
	}

	if err := n.sender.SendHTML(ctx, n.chatID, text); err != nil {
		n.logger.Error("notification send failed",
			"kind", kind, "client_id", clientID, "error", err)
		if clientID != "" {
			n.pendingMu.Lock()
			n.pending[clientID] = pendingSend{kind: kind, text: text}
			n.pendingMu.Unlock()
		}
		return
	}
	if clientID != "" {
		n.pendingMu.Lock()
		delete(n.pending, clientID)
		n.pendingMu.Unlock()
	}
}

// retryPendingLocked attempts the one retry owed to clientID, if any,
// and clears it regardless of outcome: a retry is owed at most once.
// Called with sendMu held.
func (n *Notifier) retryPendingLocked(ctx context.Context, clientID string) {
	n.pendingMu.Lock()
	p, ok := n.pending[clientID]
	if ok {
		delete(n.pending, clientID)
	}
	n.pendingMu.Unlock()
	if !ok {
		return
	}
	if err := n.sender.SendHTML(ctx, n.chatID, p.text); err != nil {
		n.logger.Error("retried notification send failed, giving up",
			"kind", p.kind, "client_id", clientID, "error", err)
	}
}

// NotifyEvent renders and best-effort sends the message for one registry
// transition.
func (n *Notifier) NotifyEvent(ctx context.Context, ev registry.Event) {
	now := time.Now()
	switch ev.Kind {
	case registry.EventConnected:
		n.send(ctx, ev.Kind, ev.ClientID, RenderConnected(ev))
	case registry.EventIPChanged:
		n.send(ctx, ev.Kind, ev.ClientID, RenderIPChanged(ev))
	case registry.EventDNSLeak:
		n.send(ctx, ev.Kind, ev.ClientID, RenderDNSLeak(ev))
	case registry.EventDNSUnknown:
		n.send(ctx, ev.Kind, ev.ClientID, RenderDNSUnknown(ev))
	case registry.EventBypass:
		serverIP := ""
		if n.selfView != nil {
			serverIP, _, _, _ = n.selfView.Snapshot()
		}
		n.send(ctx, ev.Kind, ev.ClientID, RenderBypass(ev, serverIP))
	case registry.EventOffline:
		n.send(ctx, ev.Kind, ev.ClientID, RenderOffline(ev, now))
	case registry.EventNoClientsAlive:
		n.send(ctx, ev.Kind, "", RenderNoClientsAlive(now))
	default:
		n.logger.Warn("unhandled event kind", "kind", ev.Kind)
	}
}

// NotifyServerStarted announces process startup, once. The server calls
// it after starting the listener goroutines (without waiting for them to
// bind) and after the self-view's first refresh attempt.
func (n *Notifier) NotifyServerStarted() {
	text := RenderServerStarted(n.version, n.commit, n.offlineThreshold, n.sweepInterval)
	n.send(context.Background(), registry.EventServerStarted, "", text)
}

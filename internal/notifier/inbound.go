package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

// CommandHandler answers one recognized inbound command with the reply
// text to send back.
type CommandHandler func(reg *registry.Registry) string

// defaultCommands implements ping/status/help against registry state,
// dispatching each recognized command to a handler that reads registry
// state via Snapshot.
func defaultCommands() map[string]CommandHandler {
	return map[string]CommandHandler{
		"ping": func(_ *registry.Registry) string {
			return "pong"
		},
		"status": func(reg *registry.Registry) string {
			records := reg.Snapshot()
			if len(records) == 0 {
				return "No clients have ever reported in."
			}
			var b strings.Builder
			for _, rec := range records {
				fmt.Fprintf(&b, "%s: %s (last seen %s)\n",
					rec.ClientID, rec.State, Humanize(rec.LastSeen, time.Now()))
			}
			return b.String()
		},
		"help": func(_ *registry.Registry) string {
			return "Commands: /ping, /status, /help"
		},
	}
}

// RunInbound long-polls for updates and dispatches recognized commands
// until ctx is canceled. It unblocks within one poll interval of
// cancellation, bounded by the update-channel's own read timeout.
func RunInbound(ctx context.Context, bot *tgbotapi.BotAPI, reg *registry.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notifier")

	commands := defaultCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			reply := dispatch(update.Message.Text, commands, reg)
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, reply)
			if _, err := bot.Send(msg); err != nil {
				logger.Error("inbound reply send failed", "error", err)
			}
		}
	}
}

func dispatch(text string, commands map[string]CommandHandler, reg *registry.Registry) string {
	cmd := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(text, "/")))
	if handler, ok := commands[cmd]; ok {
		return handler(reg)
	}
	return "Unrecognized command. Try /ping, /status or /help."
}

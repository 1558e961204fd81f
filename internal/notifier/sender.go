package notifier

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the outbound half of the chat transport, kept as a narrow
// interface so the transport itself stays a black-box collaborator and
// tests can substitute a fake.
type Sender interface {
	SendHTML(ctx context.Context, chatID int64, text string) error
}

// telegramSender adapts *tgbotapi.BotAPI to Sender.
type telegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender wraps a configured bot token into a Sender.
func NewTelegramSender(token string) (Sender, *tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, nil, err
	}
	return telegramSender{bot: bot}, bot, nil
}

func (t telegramSender) SendHTML(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(msg)
	return err
}

package alerts

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/render"
	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/telegram/sender"
)

// TelegramNotifier queues alert messages on the outbound dispatcher.
type TelegramNotifier struct {
	dispatcher *sender.Dispatcher
	api        sender.Sender
}

// NewTelegramNotifier returns a notifier sending through api.
func NewTelegramNotifier(d *sender.Dispatcher, api sender.Sender) *TelegramNotifier {
	return &TelegramNotifier{dispatcher: d, api: api}
}

// Notify implements Notifier.
func (n *TelegramNotifier) Notify(ctx context.Context, a storage.Alert, price float64) error {
	if a.TelegramID == 0 {
		return errors.New("alerts: alert has no telegram recipient")
	}
	return n.dispatcher.EnqueueSend(ctx, n.api, a.TelegramID, render.AlertFired(a, price), tele.ModeMarkdownV2)
}

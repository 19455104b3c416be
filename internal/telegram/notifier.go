package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers service notifications as HTML messages.
type Notifier struct {
	api    sender
	admins []int64
}

func NewNotifier(api sender, adminIDs []int64) *Notifier {
	return &Notifier{api: api, admins: notify.Unique(adminIDs)}
}

func (n *Notifier) Notify(ctx context.Context, tgID int64, text string) notify.Result {
	if err := ctx.Err(); err != nil {
		return notify.Result{TgID: tgID, Err: err}
	}
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.api.Send(msg); err != nil {
		return notify.Result{TgID: tgID, Err: err}
	}
	return notify.Result{TgID: tgID, Sent: true}
}

func (n *Notifier) NotifyMany(ctx context.Context, tgIDs []int64, text string) []notify.Result {
	ids := notify.Unique(tgIDs)
	results := make([]notify.Result, 0, len(ids))
	for _, id := range ids {
		results = append(results, n.Notify(ctx, id, text))
	}
	return results
}

func (n *Notifier) NotifyAdmins(ctx context.Context, text string) []notify.Result {
	return n.NotifyMany(ctx, n.admins, text)
}

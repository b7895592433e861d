package bot

import (
	"context"

	"refbot/internal/model"
	"refbot/pkg/logger"

	"go.uber.org/zap"
)

type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string, markup *model.Markup) error
}

// Notifier messages the referrer and the upline credited by a registration,
// whether it came from /start or from the mini-app.
type Notifier struct {
	sender TextSender
}

func NewNotifier(sender TextSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) NotifyRegistration(ctx context.Context, reg *model.Registration) {
	if reg == nil {
		return
	}
	if reg.Referrer != nil {
		n.notify(ctx, reg.Referrer.TelegramID, msgReferralBonus)
	}
	if reg.Downline != nil {
		n.notify(ctx, reg.Downline.TelegramID, msgDownlineBonus)
	}
}

func (n *Notifier) notify(ctx context.Context, chatID int64, text string) {
	if err := n.sender.SendText(ctx, chatID, text, nil); err != nil {
		logger.Logger().Warn("failed to send bonus notification",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

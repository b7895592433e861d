package bot

import (
	"context"
	"sync"

	"refbot/internal/model"
	"refbot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type EventHandler interface {
	Handle(ctx context.Context, ev model.Event)
}

// Listen polls for updates until ctx is done. Each update is handled on its
// own goroutine; Listen returns after the in-flight ones finish.
func (t *Telegram) Listen(ctx context.Context, handler EventHandler) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = t.pollTimeout

	updates := t.bot.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer wg.Wait()

	logger.Logger().Info("listening for telegram updates", zap.String("bot", t.bot.Self.UserName))

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := toEvent(update)
			if !ok {
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						logger.Logger().Error("panic while handling update",
							zap.Int("update_id", update.UpdateID),
							zap.Any("panic", r))
					}
				}()
				handler.Handle(ctx, ev)
			}()

		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		}
	}
}

func toEvent(update tgbotapi.Update) (model.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		ev := model.Event{
			Callback: &model.Callback{ID: q.ID, Data: q.Data},
		}
		if q.From != nil {
			ev.SenderID = q.From.ID
			ev.Username = q.From.UserName
			ev.FirstName = q.From.FirstName
			ev.LastName = q.From.LastName
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
			ev.ChatType = model.ChatType(q.Message.Chat.Type)
		}
		return ev, true

	case update.Message != nil:
		return messageEvent(update.Message), true

	case update.ChannelPost != nil:
		return messageEvent(update.ChannelPost), true
	}

	return model.Event{}, false
}

func messageEvent(msg *tgbotapi.Message) model.Event {
	ev := model.Event{
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if ev.Text == "" {
		ev.Text = msg.Caption
	}
	if msg.From != nil {
		ev.SenderID = msg.From.ID
		ev.Username = msg.From.UserName
		ev.FirstName = msg.From.FirstName
		ev.LastName = msg.From.LastName
	}
	if msg.Chat != nil {
		ev.ChatID = msg.Chat.ID
		ev.ChatType = model.ChatType(msg.Chat.Type)
		ev.ChatName = msg.Chat.UserName
	}
	if n := len(msg.Photo); n > 0 {
		ev.PhotoID = msg.Photo[n-1].FileID
	}
	return ev
}

package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"refbot/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Config struct {
	BotToken    string
	Debug       bool
	PollTimeout int
}

type Telegram struct {
	bot         *tgbotapi.BotAPI
	client      *http.Client
	pollTimeout int
}

func NewTelegram(cfg Config) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = cfg.Debug

	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 60
	}

	return &Telegram{
		bot:         bot,
		client:      &http.Client{Timeout: 30 * time.Second},
		pollTimeout: pollTimeout,
	}, nil
}

func (t *Telegram) Username() string {
	return t.bot.Self.UserName
}

func (t *Telegram) SendText(_ context.Context, chatID int64, text string, markup *model.Markup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if rm := replyMarkup(markup); rm != nil {
		msg.ReplyMarkup = rm
	}

	_, err := t.bot.Send(msg)
	return err
}

// SendMedia accepts a local path, an http(s) URL or a Telegram file id.
func (t *Telegram) SendMedia(_ context.Context, chatID int64, mediaRef, caption string, markup *model.Markup) error {
	photo := tgbotapi.NewPhoto(chatID, requestFile(mediaRef))
	photo.Caption = caption
	if rm := replyMarkup(markup); rm != nil {
		photo.ReplyMarkup = rm
	}

	_, err := t.bot.Send(photo)
	return err
}

func (t *Telegram) Forward(_ context.Context, chatID, fromChatID int64, messageID int) error {
	_, err := t.bot.Send(tgbotapi.NewForward(chatID, fromChatID, messageID))
	return err
}

func (t *Telegram) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (t *Telegram) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (t *Telegram) MembershipStatus(_ context.Context, chat string, userID int64) (model.MemberStatus, error) {
	chatCfg, err := chatConfig(chat, userID)
	if err != nil {
		return model.MemberStatusNone, err
	}

	member, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: chatCfg})
	if err != nil {
		return model.MemberStatusNone, fmt.Errorf("failed to get chat member: %w", err)
	}

	switch member.Status {
	case "creator":
		return model.MemberStatusCreator, nil
	case "administrator":
		return model.MemberStatusAdministrator, nil
	case "member":
		return model.MemberStatusMember, nil
	case "restricted":
		if member.IsMember {
			return model.MemberStatusMember, nil
		}
	}
	return model.MemberStatusNone, nil
}

func chatConfig(chat string, userID int64) (tgbotapi.ChatConfigWithUser, error) {
	chat = strings.TrimSpace(chat)
	chat = strings.TrimPrefix(chat, "https://t.me/")
	chat = strings.TrimPrefix(chat, "http://t.me/")

	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return tgbotapi.ChatConfigWithUser{ChatID: id, UserID: userID}, nil
	}

	if chat == "" || strings.HasPrefix(chat, "+") || strings.Contains(chat, "/") {
		return tgbotapi.ChatConfigWithUser{}, fmt.Errorf("chat %q cannot be checked", chat)
	}

	if !strings.HasPrefix(chat, "@") {
		chat = "@" + chat
	}
	return tgbotapi.ChatConfigWithUser{SuperGroupUsername: chat, UserID: userID}, nil
}

func requestFile(ref string) tgbotapi.RequestFileData {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return tgbotapi.FileURL(ref)
	case strings.ContainsAny(ref, "/\\."):
		return tgbotapi.FilePath(ref)
	default:
		return tgbotapi.FileID(ref)
	}
}

func replyMarkup(m *model.Markup) any {
	if m.Empty() {
		return nil
	}

	if len(m.Inline) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Inline))
		for _, row := range m.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				} else {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if len(m.Keyboard) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Keyboard))
		for _, row := range m.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		kb.OneTimeKeyboard = true
		return kb
	}

	return tgbotapi.NewRemoveKeyboard(false)
}

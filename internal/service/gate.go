package service

import (
	"context"
	"fmt"
	"strings"

	"refbot/internal/model"
	"refbot/pkg/logger"

	"go.uber.org/zap"
)

const (
	JoinCheckCallback = "check_join"
	JoinCheckLabel    = "✅ I've joined"
)

type Gate struct {
	settings SettingsRepository
	oracle   MembershipOracle
}

func NewGate(settings SettingsRepository, oracle MembershipOracle) *Gate {
	return &Gate{
		settings: settings,
		oracle:   oracle,
	}
}

// CheckMembership fails closed: a settings or oracle error counts as not joined.
func (g *Gate) CheckMembership(ctx context.Context, senderID int64) bool {
	log := logger.Logger()

	settings, err := g.settings.GetSettings(ctx)
	if err != nil {
		log.Error("failed to load settings for membership check", zap.Error(err))
		return false
	}
	if !settings.StrictJoin {
		return true
	}

	for _, chat := range settings.ChatsToJoin {
		status, err := g.oracle.MembershipStatus(ctx, chat, senderID)
		if err != nil {
			log.Warn("membership lookup failed",
				zap.String("chat", chat),
				zap.Int64("telegram_id", senderID),
				zap.Error(err))
			return false
		}
		if !status.Joined() {
			return false
		}
	}

	return true
}

// JoinPrompt lists the destinations the sender still has to join. Public
// usernames and links become URL buttons; the last row re-runs the check.
func (g *Gate) JoinPrompt(ctx context.Context) (*model.RenderedReply, error) {
	settings, err := g.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var text strings.Builder
	text.WriteString("Please join the following chats to continue:\n")

	var rows [][]model.InlineButton
	for _, chat := range settings.ChatsToJoin {
		text.WriteString("\n• " + chat)
		if url := chatURL(chat); url != "" {
			rows = append(rows, []model.InlineButton{{Text: chat, URL: url}})
		}
	}
	rows = append(rows, []model.InlineButton{{Text: JoinCheckLabel, Data: JoinCheckCallback}})

	return &model.RenderedReply{
		Text:   text.String(),
		Inline: rows,
	}, nil
}

func chatURL(chat string) string {
	switch {
	case strings.HasPrefix(chat, "https://"), strings.HasPrefix(chat, "http://"):
		return chat
	case strings.HasPrefix(chat, "@") && len(chat) > 1:
		return "https://t.me/" + chat[1:]
	}
	return ""
}

package service

import (
	"context"
	"errors"
	"strings"

	"refbot/internal/metrics"
	"refbot/internal/model"
)

type Dispatcher struct {
	registry *CommandRegistry
	admins   AdminChecker
}

func NewDispatcher(registry *CommandRegistry, admins AdminChecker) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		admins:   admins,
	}
}

// Resolve maps inbound text to a stored entry. It returns ErrCommandNotFound
// when nothing matches and ErrForbidden when the entry is admin-only and the
// sender is not an admin.
func (d *Dispatcher) Resolve(ctx context.Context, rawText string, senderID int64) (*model.RenderedReply, error) {
	var trigger string
	if IsSlashCommand(rawText) {
		trigger = model.NormalizeCommandTrigger(rawText)
	} else {
		trigger = model.NormalizeTextTrigger(rawText)
	}

	entry, err := d.registry.Lookup(ctx, trigger)
	if err != nil {
		if errors.Is(err, ErrCommandNotFound) {
			metrics.RecordDispatch("not_found")
		}
		return nil, err
	}

	if entry.AdminOnly {
		ok, err := d.admins.IsAdmin(ctx, senderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			metrics.RecordDispatch("forbidden")
			return nil, ErrForbidden
		}
	}

	metrics.RecordDispatch("resolved")

	return Render(entry), nil
}

func IsSlashCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func Render(entry *model.CommandEntry) *model.RenderedReply {
	reply := &model.RenderedReply{
		Text:     entry.Response,
		ImageURL: entry.ImageURL,
	}

	if len(entry.InlineLinks) > 0 {
		buttons := make([]model.InlineButton, 0, len(entry.InlineLinks))
		for _, link := range entry.InlineLinks {
			buttons = append(buttons, model.InlineButton{Text: link.Text, URL: link.URL})
		}
		reply.Inline = Layout(buttons)
	}

	if len(entry.MarkupButtons) > 0 {
		reply.Keyboard = Layout(entry.MarkupButtons)
		reply.KeyboardSeparate = true
	}

	return reply
}

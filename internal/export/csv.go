package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"refbot/internal/model"

	"github.com/goccy/go-json"
)

var ErrUnknownEntity = errors.New("unknown entity")

type Entity string

const (
	EntityCommands Entity = "commands"
	EntityUsers    Entity = "users"
	EntityAdmins   Entity = "admins"
	EntitySettings Entity = "settings"
)

var Entities = []Entity{EntityCommands, EntityUsers, EntityAdmins, EntitySettings}

type Source interface {
	ListCommands(ctx context.Context, withAdminOnly bool) ([]*model.CommandEntry, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListAdmins(ctx context.Context) ([]*model.Admin, error)
	GetSettings(ctx context.Context) (*model.Settings, error)
}

// Exporter dumps the stored entities as CSV, one header row followed by one
// row per record.
type Exporter struct {
	src Source
}

func NewExporter(src Source) *Exporter {
	return &Exporter{src: src}
}

func ParseEntity(name string) (Entity, error) {
	e := Entity(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Entities {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, name)
}

func (e *Exporter) Write(ctx context.Context, w io.Writer, entity Entity) error {
	var (
		rows [][]string
		err  error
	)

	switch entity {
	case EntityCommands:
		rows, err = e.commandRows(ctx)
	case EntityUsers:
		rows, err = e.userRows(ctx)
	case EntityAdmins:
		rows, err = e.adminRows(ctx)
	case EntitySettings:
		rows, err = e.settingsRows(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", entity, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s csv: %w", entity, err)
	}
	return nil
}

func (e *Exporter) commandRows(ctx context.Context) ([][]string, error) {
	commands, err := e.src.ListCommands(ctx, true)
	if err != nil {
		return nil, err
	}

	rows := [][]string{{"id", "trigger", "description", "response", "image_url", "inline_links", "markup_buttons", "is_command", "admin_only"}}
	for _, c := range commands {
		links, err := json.Marshal(c.InlineLinks)
		if err != nil {
			return nil, err
		}
		buttons, err := json.Marshal(c.MarkupButtons)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Trigger,
			c.Description,
			c.Response,
			c.ImageURL,
			string(links),
			string(buttons),
			strconv.FormatBool(c.IsCommand),
			strconv.FormatBool(c.AdminOnly),
		})
	}
	return rows, nil
}

func (e *Exporter) userRows(ctx context.Context) ([][]string, error) {
	users, err := e.src.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{{"id", "telegram_id", "username", "first_name", "last_name", "referral_code", "referrer_id", "earnings", "downline_earnings", "total_earnings", "created_at"}}
	for _, u := range users {
		var referrer string
		if u.ReferrerID != nil {
			referrer = strconv.FormatInt(*u.ReferrerID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			strconv.FormatInt(u.TelegramID, 10),
			u.Username,
			u.FirstName,
			u.LastName,
			u.ReferralCode,
			referrer,
			formatFloat(u.Earnings),
			formatFloat(u.DownlineEarnings),
			formatFloat(u.TotalEarnings),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows, nil
}

func (e *Exporter) adminRows(ctx context.Context) ([][]string, error) {
	admins, err := e.src.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{{"telegram_id", "created_at"}}
	for _, a := range admins {
		rows = append(rows, []string{
			strconv.FormatInt(a.TelegramID, 10),
			a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows, nil
}

func (e *Exporter) settingsRows(ctx context.Context) ([][]string, error) {
	s, err := e.src.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	chats, err := json.Marshal(s.ChatsToJoin)
	if err != nil {
		return nil, err
	}

	return [][]string{
		{"referral_earning", "downline_earning", "chats_to_join", "strict_join", "broadcast_chat"},
		{
			formatFloat(s.ReferralEarning),
			formatFloat(s.DownlineEarning),
			string(chats),
			strconv.FormatBool(s.StrictJoin),
			s.BroadcastChat,
		},
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

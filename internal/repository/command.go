package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"refbot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/lib/pq"
)

const commandsConstraint = "commands_command_key"

type Command struct {
	ID            int64          `db:"id"`
	Command       string         `db:"command"`
	Description   string         `db:"description"`
	Response      string         `db:"response"`
	IsCommand     bool           `db:"is_command"`
	AdminOnly     bool           `db:"admin_only"`
	ImageURL      string         `db:"image_url"`
	InlineLinks   []byte         `db:"inline_links"`
	MarkupButtons pq.StringArray `db:"markup_buttons"`
}

var commandColumns = []string{
	"id",
	"command",
	"description",
	"response",
	"is_command",
	"admin_only",
	"image_url",
	"inline_links",
	"markup_buttons",
}

func (c *Command) toModel() (*model.CommandEntry, error) {
	var links []model.InlineLink
	if len(c.InlineLinks) > 0 {
		if err := json.Unmarshal(c.InlineLinks, &links); err != nil {
			return nil, fmt.Errorf("failed to decode inline links of %q: %w", c.Command, err)
		}
	}

	return &model.CommandEntry{
		ID:            c.ID,
		Trigger:       c.Command,
		Description:   c.Description,
		Response:      c.Response,
		ImageURL:      c.ImageURL,
		InlineLinks:   links,
		MarkupButtons: []string(c.MarkupButtons),
		IsCommand:     c.IsCommand,
		AdminOnly:     c.AdminOnly,
	}, nil
}

func commandValues(cmd *model.CommandEntry) (map[string]interface{}, error) {
	links := cmd.InlineLinks
	if links == nil {
		links = []model.InlineLink{}
	}
	encoded, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inline links: %w", err)
	}

	buttons := cmd.MarkupButtons
	if buttons == nil {
		buttons = []string{}
	}

	return map[string]interface{}{
		"command":        cmd.Trigger,
		"description":    cmd.Description,
		"response":       cmd.Response,
		"is_command":     cmd.IsCommand,
		"admin_only":     cmd.AdminOnly,
		"image_url":      cmd.ImageURL,
		"inline_links":   string(encoded),
		"markup_buttons": pq.StringArray(buttons),
	}, nil
}

func (r *Repository) CreateCommand(ctx context.Context, cmd *model.CommandEntry) error {
	values, err := commandValues(cmd)
	if err != nil {
		return err
	}

	query, args, err := squirrel.
		Insert("commands").
		SetMap(values).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build command insert query: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&cmd.ID)
	if err != nil {
		if isUniqueViolation(err, commandsConstraint) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert command: %w", err)
	}

	return nil
}

func (r *Repository) UpdateCommand(ctx context.Context, cmd *model.CommandEntry) error {
	values, err := commandValues(cmd)
	if err != nil {
		return err
	}

	query, args, err := squirrel.
		Update("commands").
		SetMap(values).
		Where(squirrel.Eq{"id": cmd.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build command update query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, commandsConstraint) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update command: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) GetCommandByTrigger(ctx context.Context, trigger string) (*model.CommandEntry, error) {
	var cmd Command
	query, args, err := squirrel.
		Select(commandColumns...).
		From("commands").
		Where(squirrel.Eq{"command": trigger}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &cmd, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return cmd.toModel()
}

func (r *Repository) DeleteCommand(ctx context.Context, trigger string) error {
	query, args, err := squirrel.
		Delete("commands").
		Where(squirrel.Eq{"command": trigger}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete command: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListCommands returns entries ordered by creation. Admin-only entries are
// included only when withAdminOnly is set.
func (r *Repository) ListCommands(ctx context.Context, withAdminOnly bool) ([]*model.CommandEntry, error) {
	builder := squirrel.
		Select(commandColumns...).
		From("commands").
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar)
	if !withAdminOnly {
		builder = builder.Where(squirrel.Eq{"admin_only": false})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []*Command
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}

	out := make([]*model.CommandEntry, 0, len(rows))
	for _, row := range rows {
		cmd, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}

	return out, nil
}

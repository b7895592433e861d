package repository

import (
	"context"
	"fmt"
	"time"

	"refbot/internal/model"

	"github.com/Masterminds/squirrel"
)

type Admin struct {
	TelegramID int64     `db:"telegram_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *Repository) AddAdmin(ctx context.Context, telegramID int64) error {
	query, args, err := squirrel.
		Insert("admins").
		Columns("telegram_id").
		Values(telegramID).
		Suffix("ON CONFLICT (telegram_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build admin insert query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDuplicate
	}

	return nil
}

func (r *Repository) DeleteAdmin(ctx context.Context, telegramID int64) error {
	query, args, err := squirrel.
		Delete("admins").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
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

func (r *Repository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("admins").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	err = r.db.GetContext(ctx, &exists, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}

	return exists, nil
}

func (r *Repository) ListAdmins(ctx context.Context) ([]*model.Admin, error) {
	query, args, err := squirrel.
		Select("telegram_id", "created_at").
		From("admins").
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var admins []Admin
	err = r.db.SelectContext(ctx, &admins, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	out := make([]*model.Admin, len(admins))
	for i, a := range admins {
		out[i] = &model.Admin{TelegramID: a.TelegramID, CreatedAt: a.CreatedAt}
	}

	return out, nil
}

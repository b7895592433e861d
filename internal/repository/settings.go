package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"refbot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const settingsID = 1

type Settings struct {
	ReferralEarning float64        `db:"referral_earning"`
	DownlineEarning float64        `db:"downline_earning"`
	ChatsToJoin     pq.StringArray `db:"chats_to_join"`
	StrictJoin      bool           `db:"strict_join"`
	BroadcastChat   string         `db:"broadcast_chat"`
}

func (s *Settings) toModel() *model.Settings {
	return &model.Settings{
		ReferralEarning: s.ReferralEarning,
		DownlineEarning: s.DownlineEarning,
		ChatsToJoin:     []string(s.ChatsToJoin),
		StrictJoin:      s.StrictJoin,
		BroadcastChat:   s.BroadcastChat,
	}
}

func selectSettings() squirrel.SelectBuilder {
	return squirrel.
		Select("referral_earning", "downline_earning", "chats_to_join", "strict_join", "broadcast_chat").
		From("settings").
		Where(squirrel.Eq{"id": settingsID}).
		PlaceholderFormat(squirrel.Dollar)
}

// GetSettings returns zero-valued settings while the row has not been written yet.
func (r *Repository) GetSettings(ctx context.Context) (*model.Settings, error) {
	query, args, err := selectSettings().ToSql()
	if err != nil {
		return nil, err
	}

	var settings Settings
	err = r.db.GetContext(ctx, &settings, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.Settings{}, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings.toModel(), nil
}

func (r *Repository) getSettingsWithTx(ctx context.Context, tx *sqlx.Tx) (*model.Settings, error) {
	query, args, err := selectSettings().ToSql()
	if err != nil {
		return nil, err
	}

	var settings Settings
	err = tx.GetContext(ctx, &settings, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.Settings{}, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings.toModel(), nil
}

// UpdateSettings creates the singleton row on first write and applies update
// to it under a row lock.
func (r *Repository) UpdateSettings(ctx context.Context, update func(s *model.Settings)) (*model.Settings, error) {
	var updated *model.Settings

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		insertQuery, insertArgs, err := squirrel.
			Insert("settings").
			Columns("id").
			Values(settingsID).
			Suffix("ON CONFLICT (id) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, insertQuery, insertArgs...)
		if err != nil {
			return fmt.Errorf("failed to create settings: %w", err)
		}

		query, args, err := selectSettings().Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return err
		}

		var current Settings
		err = tx.GetContext(ctx, &current, query, args...)
		if err != nil {
			return fmt.Errorf("failed to lock settings: %w", err)
		}

		settings := current.toModel()
		update(settings)

		chats := settings.ChatsToJoin
		if chats == nil {
			chats = []string{}
		}

		updateQuery, updateArgs, err := squirrel.
			Update("settings").
			SetMap(map[string]interface{}{
				"referral_earning": settings.ReferralEarning,
				"downline_earning": settings.DownlineEarning,
				"chats_to_join":    pq.StringArray(chats),
				"strict_join":      settings.StrictJoin,
				"broadcast_chat":   settings.BroadcastChat,
			}).
			Where(squirrel.Eq{"id": settingsID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}

		updated = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"refbot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type User struct {
	ID               int64     `db:"id"`
	TelegramID       int64     `db:"telegram_id"`
	Username         string    `db:"username"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	ReferralCode     string    `db:"referral_code"`
	ReferrerID       *int64    `db:"referrer_id"`
	Earnings         float64   `db:"earnings"`
	DownlineEarnings float64   `db:"downline_earnings"`
	TotalEarnings    float64   `db:"total_earnings"`
	CreatedAt        time.Time `db:"created_at"`
}

var userColumns = []string{
	"id",
	"telegram_id",
	"username",
	"first_name",
	"last_name",
	"referral_code",
	"referrer_id",
	"earnings",
	"downline_earnings",
	"total_earnings",
	"created_at",
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:               u.ID,
		TelegramID:       u.TelegramID,
		Username:         u.Username,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		ReferralCode:     u.ReferralCode,
		ReferrerID:       u.ReferrerID,
		Earnings:         u.Earnings,
		DownlineEarnings: u.DownlineEarnings,
		TotalEarnings:    u.TotalEarnings,
		CreatedAt:        u.CreatedAt,
	}
}

func selectUsers() squirrel.SelectBuilder {
	return squirrel.
		Select(userColumns...).
		From("users").
		PlaceholderFormat(squirrel.Dollar)
}

// CreateUser inserts the account unless one already exists for its telegram
// id. The referrer credit runs in the same transaction and only when this call
// performed the insert, so concurrent first contacts credit at most once.
func (r *Repository) CreateUser(ctx context.Context, user *model.User, referralCode string) (*model.Registration, error) {
	reg := &model.Registration{}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		existing, err := r.getUserWithTx(ctx, tx, squirrel.Eq{"telegram_id": user.TelegramID}, false)
		if err == nil {
			reg.User = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		var referrer *model.User
		if referralCode != "" {
			referrer, err = r.getUserWithTx(ctx, tx, squirrel.Eq{"referral_code": referralCode}, true)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		var referrerID *int64
		if referrer != nil {
			referrerID = &referrer.ID
		}

		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"telegram_id":   user.TelegramID,
				"username":      user.Username,
				"first_name":    user.FirstName,
				"last_name":     user.LastName,
				"referral_code": user.ReferralCode,
				"referrer_id":   referrerID,
			}).
			Suffix("ON CONFLICT (telegram_id) DO NOTHING RETURNING " + strings.Join(userColumns, ", ")).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		var created User
		err = tx.GetContext(ctx, &created, query, args...)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// lost the race against a concurrent first contact
				existing, err := r.getUserWithTx(ctx, tx, squirrel.Eq{"telegram_id": user.TelegramID}, false)
				if err != nil {
					return err
				}
				reg.User = existing
				return nil
			case isUniqueViolation(err, referralCodeConstraint):
				return ErrReferralCodeTaken
			default:
				return fmt.Errorf("failed to insert user: %w", err)
			}
		}

		reg.User = created.toModel()
		reg.Created = true

		if referrer == nil {
			return nil
		}

		settings, err := r.getSettingsWithTx(ctx, tx)
		if err != nil {
			return err
		}

		err = r.creditWithTx(ctx, tx, referrer.ID, "earnings", settings.ReferralEarning)
		if err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}
		reg.Referrer = referrer
		reg.Credit = settings.ReferralEarning

		if referrer.ReferrerID != nil && settings.DownlineEarning != 0 {
			err = r.creditWithTx(ctx, tx, *referrer.ReferrerID, "downline_earnings", settings.DownlineEarning)
			if err != nil {
				return fmt.Errorf("failed to credit downline: %w", err)
			}

			upline, err := r.getUserWithTx(ctx, tx, squirrel.Eq{"id": *referrer.ReferrerID}, false)
			if err != nil {
				return err
			}
			reg.Downline = upline
			reg.DownCredit = settings.DownlineEarning
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func (r *Repository) creditWithTx(ctx context.Context, tx *sqlx.Tx, userID int64, column string, amount float64) error {
	query, args, err := squirrel.
		Update("users").
		Set(column, squirrel.Expr(column+" + ?", amount)).
		Set("total_earnings", squirrel.Expr("total_earnings + ?", amount)).
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user User
	query, args, err := selectUsers().
		Where(squirrel.Eq{"telegram_id": telegramID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) getUserWithTx(ctx context.Context, tx *sqlx.Tx, where squirrel.Eq, forUpdate bool) (*model.User, error) {
	var user User
	builder := selectUsers().Where(where)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) AdjustEarnings(ctx context.Context, telegramID int64, delta float64) (*model.User, error) {
	var adjusted *model.User

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		user, err := r.getUserWithTx(ctx, tx, squirrel.Eq{"telegram_id": telegramID}, true)
		if err != nil {
			return err
		}

		// total_earnings follows the change actually applied to earnings
		applied := model.ApplyDelta(user.Earnings, delta) - user.Earnings
		user.Earnings += applied
		user.TotalEarnings += applied

		query, args, err := squirrel.
			Update("users").
			Set("earnings", user.Earnings).
			Set("total_earnings", user.TotalEarnings).
			Where(squirrel.Eq{"id": user.ID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update earnings: %w", err)
		}

		adjusted = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return adjusted, nil
}

func (r *Repository) CountReferrals(ctx context.Context, userID int64) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("users").
		Where(squirrel.Eq{"referrer_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}

	return count, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query, args, err := selectUsers().OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = users[i].toModel()
	}

	return out, nil
}

func (r *Repository) ListUserTelegramIDs(ctx context.Context) ([]int64, error) {
	query, args, err := squirrel.
		Select("telegram_id").
		From("users").
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ids []int64
	err = r.db.SelectContext(ctx, &ids, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}

	return ids, nil
}

package repository

import (
	"context"
	"testing"

	"refbot/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRepository_CreateUser(t *testing.T) {
	newUser := &model.User{TelegramID: 100, Username: "user", FirstName: "First", ReferralCode: "zzzzz"}

	t.Run("credits referrer and upline on insert", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1`).
			WithArgs(int64(100)).
			WillReturnRows(userRows())
		mock.ExpectQuery(`SELECT .* FROM users WHERE referral_code = \$1 FOR UPDATE`).
			WithArgs("abcde").
			WillReturnRows(addUserRow(userRows(), 2, 200, "abcde", int64Ptr(7), 0))
		mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(telegram_id\) DO NOTHING RETURNING`).
			WillReturnRows(addUserRow(userRows(), 3, 100, "zzzzz", int64Ptr(2), 0))
		mock.ExpectQuery(`SELECT referral_earning, downline_earning, chats_to_join, strict_join, broadcast_chat FROM settings WHERE id = \$1`).
			WithArgs(settingsID).
			WillReturnRows(settingsRows(10, 2))
		mock.ExpectExec(`UPDATE users SET earnings = earnings \+ \$1, total_earnings = total_earnings \+ \$2 WHERE id = \$3`).
			WithArgs(10.0, 10.0, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE users SET downline_earnings = downline_earnings \+ \$1, total_earnings = total_earnings \+ \$2 WHERE id = \$3`).
			WithArgs(2.0, 2.0, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(addUserRow(userRows(), 7, 700, "upupu", nil, 5))
		mock.ExpectCommit()

		reg, err := repo.CreateUser(context.Background(), newUser, "abcde")
		require.NoError(t, err)

		assert.True(t, reg.Created)
		assert.Equal(t, int64(3), reg.User.ID)
		require.NotNil(t, reg.Referrer)
		assert.Equal(t, int64(200), reg.Referrer.TelegramID)
		assert.Equal(t, 10.0, reg.Credit)
		require.NotNil(t, reg.Downline)
		assert.Equal(t, int64(700), reg.Downline.TelegramID)
		assert.Equal(t, 2.0, reg.DownCredit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing user is returned without credit", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1`).
			WithArgs(int64(100)).
			WillReturnRows(addUserRow(userRows(), 3, 100, "zzzzz", int64Ptr(2), 0))
		mock.ExpectCommit()

		reg, err := repo.CreateUser(context.Background(), newUser, "abcde")
		require.NoError(t, err)

		assert.False(t, reg.Created)
		assert.Nil(t, reg.Referrer)
		assert.Equal(t, int64(3), reg.User.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown referral code registers without referrer", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1`).
			WillReturnRows(userRows())
		mock.ExpectQuery(`SELECT .* FROM users WHERE referral_code = \$1 FOR UPDATE`).
			WithArgs("nope1").
			WillReturnRows(userRows())
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(addUserRow(userRows(), 3, 100, "zzzzz", nil, 0))
		mock.ExpectCommit()

		reg, err := repo.CreateUser(context.Background(), newUser, "nope1")
		require.NoError(t, err)

		assert.True(t, reg.Created)
		assert.Nil(t, reg.Referrer)
		assert.Nil(t, reg.User.ReferrerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost insert race returns the winner", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1`).
			WillReturnRows(userRows())
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(userRows())
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1`).
			WillReturnRows(addUserRow(userRows(), 9, 100, "qqqqq", nil, 0))
		mock.ExpectCommit()

		reg, err := repo.CreateUser(context.Background(), newUser, "")
		require.NoError(t, err)

		assert.False(t, reg.Created)
		assert.Equal(t, int64(9), reg.User.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("referral code collision", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1`).
			WillReturnRows(userRows())
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: referralCodeConstraint})
		mock.ExpectRollback()

		_, err := repo.CreateUser(context.Background(), newUser, "")
		assert.ErrorIs(t, err, ErrReferralCodeTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_AdjustEarnings(t *testing.T) {
	t.Run("clamps at zero", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1 FOR UPDATE`).
			WithArgs(int64(100)).
			WillReturnRows(addUserRow(userRows(), 3, 100, "zzzzz", nil, 4))
		mock.ExpectExec(`UPDATE users SET earnings = \$1, total_earnings = \$2 WHERE id = \$3`).
			WithArgs(0.0, 0.0, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user, err := repo.AdjustEarnings(context.Background(), 100, -10)
		require.NoError(t, err)

		assert.Equal(t, 0.0, user.Earnings)
		assert.Equal(t, 0.0, user.TotalEarnings)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("floored deduction keeps total in step with downline", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1 FOR UPDATE`).
			WithArgs(int64(100)).
			WillReturnRows(userRows().
				AddRow(int64(3), int64(100), "user", "First", "", "zzzzz", nil, 10.0, 5.0, 15.0, testCreatedAt))
		mock.ExpectExec(`UPDATE users SET earnings = \$1, total_earnings = \$2 WHERE id = \$3`).
			WithArgs(0.0, 5.0, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user, err := repo.AdjustEarnings(context.Background(), 100, -12)
		require.NoError(t, err)

		assert.Equal(t, 0.0, user.Earnings)
		assert.Equal(t, 5.0, user.DownlineEarnings)
		assert.Equal(t, 5.0, user.TotalEarnings)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit moves both columns", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1 FOR UPDATE`).
			WillReturnRows(userRows().
				AddRow(int64(3), int64(100), "user", "First", "", "zzzzz", nil, 10.0, 5.0, 15.0, testCreatedAt))
		mock.ExpectExec(`UPDATE users SET earnings = \$1, total_earnings = \$2 WHERE id = \$3`).
			WithArgs(12.5, 17.5, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user, err := repo.AdjustEarnings(context.Background(), 100, 2.5)
		require.NoError(t, err)

		assert.Equal(t, 12.5, user.Earnings)
		assert.Equal(t, 17.5, user.TotalEarnings)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM users WHERE telegram_id = \$1 FOR UPDATE`).
			WillReturnRows(userRows())
		mock.ExpectRollback()

		_, err := repo.AdjustEarnings(context.Background(), 100, 5)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_CountReferrals(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE referrer_id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountReferrals(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListUserTelegramIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT telegram_id FROM users ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(10)).AddRow(int64(20)))

	ids, err := repo.ListUserTelegramIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"testing"

	"refbot/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetSettings(t *testing.T) {
	t.Run("stored row", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM settings WHERE id = \$1`).
			WillReturnRows(settingsRows(10, 2))

		s, err := repo.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &model.Settings{
			ReferralEarning: 10,
			DownlineEarning: 2,
			ChatsToJoin:     []string{"@news", "-100123"},
			StrictJoin:      true,
			BroadcastChat:   "-100999",
		}, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row yields zero settings", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM settings WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"referral_earning"}))

		s, err := repo.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &model.Settings{}, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_UpdateSettings(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO settings \(id\) VALUES \(\$1\) ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(settingsID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM settings WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(settingsRows(10, 2))
	mock.ExpectExec(`UPDATE settings SET broadcast_chat = \$1, chats_to_join = \$2, downline_earning = \$3, referral_earning = \$4, strict_join = \$5 WHERE id = \$6`).
		WithArgs("-100999", pq.StringArray{"@news", "-100123"}, 2.0, 25.0, true, settingsID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := repo.UpdateSettings(context.Background(), func(s *model.Settings) {
		s.ReferralEarning = 25
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, s.ReferralEarning)
	assert.Equal(t, 2.0, s.DownlineEarning)
	assert.NoError(t, mock.ExpectationsWereMet())
}

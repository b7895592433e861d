package repository

import (
	"context"
	"testing"

	"refbot/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_AddAdmin(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "added", affected: 1},
		{name: "already admin", affected: 0, wantErr: ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectExec(`INSERT INTO admins \(telegram_id\) VALUES \(\$1\) ON CONFLICT \(telegram_id\) DO NOTHING`).
				WithArgs(int64(42)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.AddAdmin(context.Background(), 42)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_DeleteAdmin_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM admins WHERE telegram_id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteAdmin(context.Background(), 42), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_IsAdmin(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM admins WHERE telegram_id = \$1 \)`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsAdmin(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListAdmins(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT telegram_id, created_at FROM admins ORDER BY created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"telegram_id", "created_at"}).
			AddRow(int64(1), testCreatedAt).
			AddRow(int64(2), testCreatedAt))

	admins, err := repo.ListAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*model.Admin{
		{TelegramID: 1, CreatedAt: testCreatedAt},
		{TelegramID: 2, CreatedAt: testCreatedAt},
	}, admins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

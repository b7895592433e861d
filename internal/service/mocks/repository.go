package mocks

import (
	"context"

	"refbot/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockCommandRepository struct {
	mock.Mock
}

func (m *MockCommandRepository) CreateCommand(ctx context.Context, cmd *model.CommandEntry) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockCommandRepository) UpdateCommand(ctx context.Context, cmd *model.CommandEntry) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockCommandRepository) GetCommandByTrigger(ctx context.Context, trigger string) (*model.CommandEntry, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommandEntry), args.Error(1)
}

func (m *MockCommandRepository) DeleteCommand(ctx context.Context, trigger string) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

func (m *MockCommandRepository) ListCommands(ctx context.Context, withAdminOnly bool) ([]*model.CommandEntry, error) {
	args := m.Called(ctx, withAdminOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CommandEntry), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User, referralCode string) (*model.Registration, error) {
	args := m.Called(ctx, user, referralCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) AdjustEarnings(ctx context.Context, telegramID int64, delta float64) (*model.User, error) {
	args := m.Called(ctx, telegramID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) CountReferrals(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) ListUserTelegramIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) AddAdmin(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockAdminRepository) DeleteAdmin(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockAdminRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepository) ListAdmins(ctx context.Context) ([]*model.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Admin), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Settings), args.Error(1)
}

// UpdateSettings applies update to the settings returned by the expectation,
// so tests can assert on the result.
func (m *MockSettingsRepository) UpdateSettings(ctx context.Context, update func(s *model.Settings)) (*model.Settings, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	settings := *args.Get(0).(*model.Settings)
	update(&settings)
	return &settings, args.Error(1)
}

package mocks

import (
	"context"

	"refbot/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockMembershipOracle struct {
	mock.Mock
}

func (m *MockMembershipOracle) MembershipStatus(ctx context.Context, chat string, userID int64) (model.MemberStatus, error) {
	args := m.Called(ctx, chat, userID)
	return args.Get(0).(model.MemberStatus), args.Error(1)
}

type MockForwarder struct {
	mock.Mock
}

func (m *MockForwarder) Forward(ctx context.Context, chatID, fromChatID int64, messageID int) error {
	args := m.Called(ctx, chatID, fromChatID, messageID)
	return args.Error(0)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) SaveImage(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

type MockAdminChecker struct {
	mock.Mock
}

func (m *MockAdminChecker) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

type MockRegistrationNotifier struct {
	mock.Mock
}

func (m *MockRegistrationNotifier) NotifyRegistration(ctx context.Context, reg *model.Registration) {
	m.Called(ctx, reg)
}

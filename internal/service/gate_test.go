package service

import (
	"context"
	"errors"
	"testing"

	"refbot/internal/model"
	"refbot/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGate_CheckMembership(t *testing.T) {
	strict := &model.Settings{StrictJoin: true, ChatsToJoin: []string{"@news", "@chat"}}

	tests := []struct {
		name      string
		mockSetup func(settings *mocks.MockSettingsRepository, oracle *mocks.MockMembershipOracle)
		expected  bool
	}{
		{
			name: "Strict join disabled",
			mockSetup: func(settings *mocks.MockSettingsRepository, oracle *mocks.MockMembershipOracle) {
				settings.On("GetSettings", mock.Anything).Return(&model.Settings{ChatsToJoin: []string{"@news"}}, nil)
			},
			expected: true,
		},
		{
			name: "Member of every chat",
			mockSetup: func(settings *mocks.MockSettingsRepository, oracle *mocks.MockMembershipOracle) {
				settings.On("GetSettings", mock.Anything).Return(strict, nil)
				oracle.On("MembershipStatus", mock.Anything, "@news", int64(7)).Return(model.MemberStatusMember, nil)
				oracle.On("MembershipStatus", mock.Anything, "@chat", int64(7)).Return(model.MemberStatusCreator, nil)
			},
			expected: true,
		},
		{
			name: "Missing one chat",
			mockSetup: func(settings *mocks.MockSettingsRepository, oracle *mocks.MockMembershipOracle) {
				settings.On("GetSettings", mock.Anything).Return(strict, nil)
				oracle.On("MembershipStatus", mock.Anything, "@news", int64(7)).Return(model.MemberStatusAdministrator, nil)
				oracle.On("MembershipStatus", mock.Anything, "@chat", int64(7)).Return(model.MemberStatusNone, nil)
			},
			expected: false,
		},
		{
			name: "Oracle error fails closed",
			mockSetup: func(settings *mocks.MockSettingsRepository, oracle *mocks.MockMembershipOracle) {
				settings.On("GetSettings", mock.Anything).Return(strict, nil)
				oracle.On("MembershipStatus", mock.Anything, "@news", int64(7)).Return(model.MemberStatusNone, errors.New("chat not found"))
			},
			expected: false,
		},
		{
			name: "Settings error fails closed",
			mockSetup: func(settings *mocks.MockSettingsRepository, oracle *mocks.MockMembershipOracle) {
				settings.On("GetSettings", mock.Anything).Return(nil, errors.New("db down"))
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &mocks.MockSettingsRepository{}
			oracle := &mocks.MockMembershipOracle{}
			tt.mockSetup(settings, oracle)

			gate := NewGate(settings, oracle)

			assert.Equal(t, tt.expected, gate.CheckMembership(context.Background(), 7))
			settings.AssertExpectations(t)
			oracle.AssertExpectations(t)
		})
	}
}

func TestGate_JoinPrompt(t *testing.T) {
	settings := &mocks.MockSettingsRepository{}
	settings.On("GetSettings", mock.Anything).Return(&model.Settings{
		StrictJoin:  true,
		ChatsToJoin: []string{"@news", "https://t.me/+invite", "-1001234"},
	}, nil)

	gate := NewGate(settings, &mocks.MockMembershipOracle{})

	reply, err := gate.JoinPrompt(context.Background())
	require.NoError(t, err)

	assert.Contains(t, reply.Text, "-1001234")
	assert.Equal(t, [][]model.InlineButton{
		{{Text: "@news", URL: "https://t.me/news"}},
		{{Text: "https://t.me/+invite", URL: "https://t.me/+invite"}},
		{{Text: JoinCheckLabel, Data: JoinCheckCallback}},
	}, reply.Inline)
}

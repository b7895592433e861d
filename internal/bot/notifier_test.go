package bot

import (
	"context"
	"errors"
	"testing"

	"refbot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSender struct {
	calls []int64
}

func (f *failingSender) SendText(_ context.Context, chatID int64, _ string, _ *model.Markup) error {
	f.calls = append(f.calls, chatID)
	return errors.New("blocked by user")
}

func TestNotifier_NotifyRegistration(t *testing.T) {
	tests := []struct {
		name     string
		reg      *model.Registration
		expected []sentMessage
	}{
		{
			name:     "Nil registration",
			reg:      nil,
			expected: nil,
		},
		{
			name:     "No referrer",
			reg:      &model.Registration{User: &model.User{TelegramID: 9}, Created: true},
			expected: nil,
		},
		{
			name: "Referrer only",
			reg: &model.Registration{
				User:     &model.User{TelegramID: 9},
				Created:  true,
				Referrer: &model.User{TelegramID: 100},
			},
			expected: []sentMessage{{chatID: 100, text: msgReferralBonus}},
		},
		{
			name: "Referrer and upline",
			reg: &model.Registration{
				User:     &model.User{TelegramID: 9},
				Created:  true,
				Referrer: &model.User{TelegramID: 100},
				Downline: &model.User{TelegramID: 200},
			},
			expected: []sentMessage{
				{chatID: 100, text: msgReferralBonus},
				{chatID: 200, text: msgDownlineBonus},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{}

			NewNotifier(transport).NotifyRegistration(context.Background(), tt.reg)

			assert.Equal(t, tt.expected, transport.sent)
		})
	}
}

func TestNotifier_SendFailureDoesNotStopUplineNotice(t *testing.T) {
	sender := &failingSender{}

	NewNotifier(sender).NotifyRegistration(context.Background(), &model.Registration{
		Referrer: &model.User{TelegramID: 100},
		Downline: &model.User{TelegramID: 200},
	})

	require.Equal(t, []int64{100, 200}, sender.calls)
}

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

func TestBroadcaster_Forward(t *testing.T) {
	users := &mocks.MockUserRepository{}
	users.On("ListUserTelegramIDs", mock.Anything).Return([]int64{1, 2, 3, 4}, nil)

	forwarder := &mocks.MockForwarder{}
	forwarder.On("Forward", mock.Anything, int64(2), int64(-100), 9).Return(errors.New("bot was blocked by the user"))
	forwarder.On("Forward", mock.Anything, mock.Anything, int64(-100), 9).Return(nil)

	hub := NewEventHub()
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	b := NewBroadcaster(users, forwarder, hub, BroadcastConfig{Workers: 2})

	result, err := b.Forward(context.Background(), -100, 9)
	require.NoError(t, err)

	assert.Equal(t, &BroadcastResult{Delivered: 3, Failed: 1}, result)
	forwarder.AssertNumberOfCalls(t, "Forward", 4)
	for _, id := range []int64{1, 3, 4} {
		forwarder.AssertCalled(t, "Forward", mock.Anything, id, int64(-100), 9)
	}

	event := <-events
	assert.Equal(t, model.LedgerEventBroadcastFinished, event.Type)
	assert.Equal(t, 3, event.Payload["delivered"])
}

func TestBroadcaster_ListFailure(t *testing.T) {
	users := &mocks.MockUserRepository{}
	users.On("ListUserTelegramIDs", mock.Anything).Return(nil, errors.New("db down"))

	forwarder := &mocks.MockForwarder{}
	b := NewBroadcaster(users, forwarder, NewEventHub(), BroadcastConfig{RatePerSecond: 10, Workers: 4})

	_, err := b.Forward(context.Background(), -100, 9)
	assert.Error(t, err)
	forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

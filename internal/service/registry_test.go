package service

import (
	"context"
	"testing"

	"refbot/internal/model"
	"refbot/internal/repository"
	"refbot/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCommandRegistry_Upsert(t *testing.T) {
	tests := []struct {
		name          string
		entry         *model.CommandEntry
		mockSetup     func(repo *mocks.MockCommandRepository)
		expectedTrig  string
		expectedError error
	}{
		{
			name:  "New command is normalized and created",
			entry: &model.CommandEntry{Trigger: "/My Offer", IsCommand: true, Response: "hi"},
			mockSetup: func(repo *mocks.MockCommandRepository) {
				repo.On("CreateCommand", mock.Anything, mock.MatchedBy(func(c *model.CommandEntry) bool {
					return c.Trigger == "my_offer"
				})).Return(nil)
			},
			expectedTrig: "my_offer",
		},
		{
			name:  "Free text keeps inner spaces",
			entry: &model.CommandEntry{Trigger: "  Hello There ", Response: "hi"},
			mockSetup: func(repo *mocks.MockCommandRepository) {
				repo.On("CreateCommand", mock.Anything, mock.Anything).Return(nil)
			},
			expectedTrig: "hello there",
		},
		{
			name:  "Duplicate trigger",
			entry: &model.CommandEntry{Trigger: "start", IsCommand: true},
			mockSetup: func(repo *mocks.MockCommandRepository) {
				repo.On("CreateCommand", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
			},
			expectedTrig:  "start",
			expectedError: ErrDuplicateTrigger,
		},
		{
			name:  "Update of a vanished entry",
			entry: &model.CommandEntry{ID: 7, Trigger: "start", IsCommand: true},
			mockSetup: func(repo *mocks.MockCommandRepository) {
				repo.On("UpdateCommand", mock.Anything, mock.Anything).Return(repository.ErrNotFound)
			},
			expectedTrig:  "start",
			expectedError: ErrCommandNotFound,
		},
		{
			name:          "Empty trigger",
			entry:         &model.CommandEntry{Trigger: " / ", IsCommand: true},
			mockSetup:     func(repo *mocks.MockCommandRepository) {},
			expectedError: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockCommandRepository{}
			tt.mockSetup(repo)
			registry := NewCommandRegistry(repo)

			err := registry.Upsert(context.Background(), tt.entry)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			if tt.expectedTrig != "" {
				assert.Equal(t, tt.expectedTrig, tt.entry.Trigger)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestCommandRegistry_Delete(t *testing.T) {
	repo := &mocks.MockCommandRepository{}
	repo.On("DeleteCommand", mock.Anything, "missing").Return(repository.ErrNotFound)
	repo.On("DeleteCommand", mock.Anything, "start").Return(nil)
	registry := NewCommandRegistry(repo)

	err := registry.Delete(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrCommandNotFound)

	err = registry.Delete(context.Background(), "start")
	assert.NoError(t, err)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "CreateCommand", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateCommand", mock.Anything, mock.Anything)
}

func TestCommandRegistry_Find(t *testing.T) {
	entry := &model.CommandEntry{ID: 1, Trigger: "my_offer", IsCommand: true}

	repo := &mocks.MockCommandRepository{}
	repo.On("GetCommandByTrigger", mock.Anything, "/my offer").Return(nil, repository.ErrNotFound)
	repo.On("GetCommandByTrigger", mock.Anything, "my_offer").Return(entry, nil)
	registry := NewCommandRegistry(repo)

	found, err := registry.Find(context.Background(), "/My Offer")
	require.NoError(t, err)
	assert.Equal(t, entry, found)

	repo.AssertExpectations(t)
}

func TestCommandRegistry_ListPublic(t *testing.T) {
	entries := []*model.CommandEntry{
		{ID: 1, Trigger: "start", IsCommand: true},
		{ID: 2, Trigger: "help me"},
	}

	repo := &mocks.MockCommandRepository{}
	repo.On("ListCommands", mock.Anything, false).Return(entries, nil)
	registry := NewCommandRegistry(repo)

	list, err := registry.ListPublic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, list)
}

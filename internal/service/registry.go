package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"refbot/internal/model"
	"refbot/internal/repository"
)

type CommandRegistry struct {
	repo  CommandRepository
	locks *keyedMutex
}

func NewCommandRegistry(repo CommandRepository) *CommandRegistry {
	return &CommandRegistry{
		repo:  repo,
		locks: newKeyedMutex(),
	}
}

// Upsert normalizes the trigger and stores the entry. Entries with a zero ID
// are created; others are updated in place.
func (r *CommandRegistry) Upsert(ctx context.Context, entry *model.CommandEntry) error {
	entry.Trigger = model.NormalizeTrigger(entry.Trigger, entry.IsCommand)
	if entry.Trigger == "" {
		return fmt.Errorf("%w: empty trigger", ErrParse)
	}

	unlock := r.locks.Lock(entry.Trigger)
	defer unlock()

	var err error
	if entry.ID == 0 {
		err = r.repo.CreateCommand(ctx, entry)
	} else {
		err = r.repo.UpdateCommand(ctx, entry)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return ErrDuplicateTrigger
		case errors.Is(err, repository.ErrNotFound):
			return ErrCommandNotFound
		default:
			return fmt.Errorf("failed to save command: %w", err)
		}
	}

	return nil
}

// Lookup is an exact, case-insensitive match on a normalized trigger.
func (r *CommandRegistry) Lookup(ctx context.Context, trigger string) (*model.CommandEntry, error) {
	trigger = strings.ToLower(strings.TrimSpace(trigger))
	if trigger == "" {
		return nil, ErrCommandNotFound
	}

	entry, err := r.repo.GetCommandByTrigger(ctx, trigger)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommandNotFound
		}
		return nil, fmt.Errorf("failed to get command: %w", err)
	}

	return entry, nil
}

// Find resolves an admin-typed trigger, trying the free-text form first and
// the slash-command form second.
func (r *CommandRegistry) Find(ctx context.Context, raw string) (*model.CommandEntry, error) {
	text := model.NormalizeTextTrigger(raw)
	entry, err := r.Lookup(ctx, text)
	if err == nil || !errors.Is(err, ErrCommandNotFound) {
		return entry, err
	}

	command := model.NormalizeCommandTrigger(raw)
	if command == text {
		return nil, ErrCommandNotFound
	}

	return r.Lookup(ctx, command)
}

func (r *CommandRegistry) Delete(ctx context.Context, trigger string) error {
	trigger = strings.ToLower(strings.TrimSpace(trigger))

	unlock := r.locks.Lock(trigger)
	defer unlock()

	err := r.repo.DeleteCommand(ctx, trigger)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommandNotFound
		}
		return fmt.Errorf("failed to delete command: %w", err)
	}

	return nil
}

func (r *CommandRegistry) ListPublic(ctx context.Context) ([]*model.CommandEntry, error) {
	entries, err := r.repo.ListCommands(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	return entries, nil
}

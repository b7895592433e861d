package service

import (
	"context"
	"fmt"
	"strings"

	"refbot/internal/model"
)

type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsService) SetReferralEarning(ctx context.Context, amount float64) (*model.Settings, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrParse)
	}
	return s.update(ctx, func(st *model.Settings) { st.ReferralEarning = amount })
}

func (s *SettingsService) SetDownlineEarning(ctx context.Context, amount float64) (*model.Settings, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrParse)
	}
	return s.update(ctx, func(st *model.Settings) { st.DownlineEarning = amount })
}

func (s *SettingsService) SetChatsToJoin(ctx context.Context, chats []string) (*model.Settings, error) {
	cleaned := make([]string, 0, len(chats))
	for _, c := range chats {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return s.update(ctx, func(st *model.Settings) { st.ChatsToJoin = cleaned })
}

func (s *SettingsService) SetStrictJoin(ctx context.Context, strict bool) (*model.Settings, error) {
	return s.update(ctx, func(st *model.Settings) { st.StrictJoin = strict })
}

func (s *SettingsService) SetBroadcastChat(ctx context.Context, chat string) (*model.Settings, error) {
	return s.update(ctx, func(st *model.Settings) { st.BroadcastChat = strings.TrimSpace(chat) })
}

func (s *SettingsService) update(ctx context.Context, fn func(st *model.Settings)) (*model.Settings, error) {
	settings, err := s.repo.UpdateSettings(ctx, fn)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"refbot/internal/model"
	"refbot/internal/repository"
)

type AdminService struct {
	repo AdminRepository
}

func NewAdminService(repo AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	ok, err := s.repo.IsAdmin(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return ok, nil
}

func (s *AdminService) Add(ctx context.Context, telegramID int64) error {
	err := s.repo.AddAdmin(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAdminExists
		}
		return fmt.Errorf("failed to add admin: %w", err)
	}
	return nil
}

func (s *AdminService) Remove(ctx context.Context, telegramID int64) error {
	err := s.repo.DeleteAdmin(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	return nil
}

// EnsureBootstrap makes sure the configured bootstrap admin is present.
func (s *AdminService) EnsureBootstrap(ctx context.Context, telegramID int64) error {
	if telegramID == 0 {
		return nil
	}
	err := s.Add(ctx, telegramID)
	if err != nil && !errors.Is(err, ErrAdminExists) {
		return err
	}
	return nil
}

func (s *AdminService) List(ctx context.Context) ([]*model.Admin, error) {
	return s.repo.ListAdmins(ctx)
}

package service

import (
	"context"
	"errors"

	"refbot/internal/model"
)

var (
	ErrCommandNotFound  = errors.New("command not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicateTrigger = errors.New("trigger already exists")
	ErrAdminExists      = errors.New("admin already exists")
	ErrParse            = errors.New("invalid input")
	ErrSessionActive    = errors.New("authoring session already active")
)

type CommandRepository interface {
	CreateCommand(ctx context.Context, cmd *model.CommandEntry) error
	UpdateCommand(ctx context.Context, cmd *model.CommandEntry) error
	GetCommandByTrigger(ctx context.Context, trigger string) (*model.CommandEntry, error)
	DeleteCommand(ctx context.Context, trigger string) error
	ListCommands(ctx context.Context, withAdminOnly bool) ([]*model.CommandEntry, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User, referralCode string) (*model.Registration, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	AdjustEarnings(ctx context.Context, telegramID int64, delta float64) (*model.User, error)
	CountReferrals(ctx context.Context, userID int64) (int, error)
	ListUserTelegramIDs(ctx context.Context) ([]int64, error)
}

type AdminRepository interface {
	AddAdmin(ctx context.Context, telegramID int64) error
	DeleteAdmin(ctx context.Context, telegramID int64) error
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]*model.Admin, error)
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, update func(s *model.Settings)) (*model.Settings, error)
}

// MembershipOracle reports whether a user belongs to a chat or channel.
type MembershipOracle interface {
	MembershipStatus(ctx context.Context, chat string, userID int64) (model.MemberStatus, error)
}

type Forwarder interface {
	Forward(ctx context.Context, chatID, fromChatID int64, messageID int) error
}

// ImageStore persists an uploaded file and returns the reference stored on the
// command entry.
type ImageStore interface {
	SaveImage(ctx context.Context, fileID string) (string, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
}

type LedgerServiceI interface {
	RegisterUser(ctx context.Context, user *model.User, referralCode string) (*model.Registration, error)
	AdjustEarnings(ctx context.Context, telegramID int64, delta float64) (*model.User, error)
	ReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error)
}

// RegistrationNotifier tells referrers about the credit a registration earned.
type RegistrationNotifier interface {
	NotifyRegistration(ctx context.Context, reg *model.Registration)
}

type AdminManager interface {
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	Add(ctx context.Context, telegramID int64) error
	Remove(ctx context.Context, telegramID int64) error
}

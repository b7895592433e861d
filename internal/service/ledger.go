package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"refbot/internal/metrics"
	"refbot/internal/model"
	"refbot/internal/repository"
	"refbot/pkg/logger"

	"go.uber.org/zap"
)

const (
	ReferralCodeLength  = 5
	referralAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxReferralAttempts = 16
)

type Ledger struct {
	repo    UserRepository
	events  *EventHub
	locks   *keyedMutex
	newCode func() (string, error)
}

func NewLedger(repo UserRepository, events *EventHub) *Ledger {
	return &Ledger{
		repo:    repo,
		events:  events,
		locks:   newKeyedMutex(),
		newCode: GenerateReferralCode,
	}
}

func GenerateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralAlphabet)))
	code := make([]byte, ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralAlphabet[n.Int64()]
	}
	return string(code), nil
}

// RegisterUser creates the account on first contact and credits the owner of
// referralCode. Later calls for the same telegram id return the stored account
// untouched. Unknown referral codes are ignored.
func (l *Ledger) RegisterUser(ctx context.Context, user *model.User, referralCode string) (*model.Registration, error) {
	log := logger.Logger()

	unlock := l.locks.Lock(strconv.FormatInt(user.TelegramID, 10))
	defer unlock()

	existing, err := l.repo.GetUserByTelegramID(ctx, user.TelegramID)
	if err == nil {
		return &model.Registration{User: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}

	var reg *model.Registration
	for attempt := 1; ; attempt++ {
		code, err := l.newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}

		candidate := *user
		candidate.ReferralCode = code

		reg, err = l.repo.CreateUser(ctx, &candidate, referralCode)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrReferralCodeTaken) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		if attempt >= maxReferralAttempts {
			return nil, fmt.Errorf("failed to allocate a unique referral code after %d attempts", attempt)
		}

		log.Debug("referral code collision, retrying",
			zap.Int64("telegram_id", user.TelegramID),
			zap.Int("attempt", attempt))
	}

	if reg.Created {
		metrics.RecordRegistration(reg.Referrer != nil)
	}

	if reg.Created && reg.Referrer != nil {
		log.Info("referral credited",
			zap.Int64("telegram_id", reg.User.TelegramID),
			zap.Int64("referrer_telegram_id", reg.Referrer.TelegramID),
			zap.Float64("amount", reg.Credit))
		metrics.RecordCredit("referral", reg.Credit)

		l.events.Publish(model.LedgerEvent{
			Type: model.LedgerEventReferralCredited,
			Payload: map[string]any{
				"telegram_id":          reg.User.TelegramID,
				"referrer_telegram_id": reg.Referrer.TelegramID,
				"amount":               reg.Credit,
			},
		})

		if reg.Downline != nil {
			metrics.RecordCredit("downline", reg.DownCredit)
			l.events.Publish(model.LedgerEvent{
				Type: model.LedgerEventDownlineCredited,
				Payload: map[string]any{
					"telegram_id":        reg.User.TelegramID,
					"upline_telegram_id": reg.Downline.TelegramID,
					"amount":             reg.DownCredit,
				},
			})
		}
	}

	return reg, nil
}

func (l *Ledger) AdjustEarnings(ctx context.Context, telegramID int64, delta float64) (*model.User, error) {
	user, err := l.repo.AdjustEarnings(ctx, telegramID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to adjust earnings: %w", err)
	}

	logger.Logger().Info("earnings adjusted",
		zap.Int64("telegram_id", telegramID),
		zap.Float64("delta", delta),
		zap.Float64("earnings", user.Earnings))

	l.events.Publish(model.LedgerEvent{
		Type: model.LedgerEventEarningsAdjusted,
		Payload: map[string]any{
			"telegram_id": telegramID,
			"delta":       delta,
			"earnings":    user.Earnings,
		},
	})

	return user, nil
}

func (l *Ledger) ReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error) {
	user, err := l.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}

	count, err := l.repo.CountReferrals(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &model.ReferralStats{
		Count:            count,
		Earnings:         user.Earnings,
		DownlineEarnings: user.DownlineEarnings,
		Code:             user.ReferralCode,
	}, nil
}

package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"refbot/internal/metrics"
	"refbot/internal/model"
	"refbot/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type BroadcastConfig struct {
	RatePerSecond float64
	Workers       int
}

type BroadcastResult struct {
	Delivered int
	Failed    int
}

type Broadcaster struct {
	users     UserRepository
	forwarder Forwarder
	events    *EventHub
	limiter   *rate.Limiter
	workers   int
}

func NewBroadcaster(users UserRepository, forwarder Forwarder, events *EventHub, cfg BroadcastConfig) *Broadcaster {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	limit := rate.Inf
	burst := workers
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Broadcaster{
		users:     users,
		forwarder: forwarder,
		events:    events,
		limiter:   rate.NewLimiter(limit, burst),
		workers:   workers,
	}
}

// Forward copies one message to every registered user. A failed delivery is
// logged and counted; it never stops the rest.
func (b *Broadcaster) Forward(ctx context.Context, fromChatID int64, messageID int) (*BroadcastResult, error) {
	log := logger.Logger()

	recipients, err := b.users.ListUserTelegramIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	var delivered, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for _, id := range recipients {
		id := id
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				failed.Add(1)
				metrics.RecordDelivery(false)
				return nil
			}

			if err := b.forwarder.Forward(gctx, id, fromChatID, messageID); err != nil {
				log.Warn("failed to forward broadcast",
					zap.Int64("telegram_id", id),
					zap.Int("message_id", messageID),
					zap.Error(err))
				failed.Add(1)
				metrics.RecordDelivery(false)
				return nil
			}

			delivered.Add(1)
			metrics.RecordDelivery(true)
			return nil
		})
	}

	_ = g.Wait()

	result := &BroadcastResult{
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
	}

	log.Info("broadcast finished",
		zap.Int64("from_chat_id", fromChatID),
		zap.Int("message_id", messageID),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed))

	b.events.Publish(model.LedgerEvent{
		Type: model.LedgerEventBroadcastFinished,
		Payload: map[string]any{
			"message_id": messageID,
			"delivered":  result.Delivered,
			"failed":     result.Failed,
		},
	})

	return result, nil
}

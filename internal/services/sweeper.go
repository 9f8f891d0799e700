package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/campuscove/internal/events"
	"github.com/joshua-takyi/campuscove/internal/models"
)

// SubscriptionSweeper deletes accepted mess subscriptions whose expiry date
// has passed.
type SubscriptionSweeper struct {
	subsRepo  models.SubscriptionRepo
	publisher events.Publisher
	clock     Clock
	logger    *slog.Logger
}

func NewSubscriptionSweeper(subsRepo models.SubscriptionRepo, publisher events.Publisher, clock Clock, logger *slog.Logger) *SubscriptionSweeper {
	return &SubscriptionSweeper{
		subsRepo:  subsRepo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

type sweepEvent struct {
	Deleted int64     `json:"deleted"`
	At      time.Time `json:"at"`
}

// Sweep runs one pass and returns the number of subscriptions removed.
func (sw *SubscriptionSweeper) Sweep(ctx context.Context) (int64, error) {
	now := sw.clock.Now()

	deleted, err := sw.subsRepo.DeleteExpiredSubscriptions(ctx, now)
	if err != nil {
		sw.logger.Error("Error cleaning up expired subscriptions", "error", err)
		return 0, fmt.Errorf("sweep expired subscriptions: %w", err)
	}

	sw.logger.Info(fmt.Sprintf("Deleted %d expired subscriptions", deleted), "deleted", deleted)

	if deleted > 0 {
		if err := sw.publisher.Publish(ctx, events.SubscriptionsExpiredSwept, sweepEvent{Deleted: deleted, At: now}); err != nil {
			sw.logger.Warn("Failed to publish sweep event", "error", err)
		}
	}
	return deleted, nil
}

// Run adapts Sweep to the scheduler's job signature.
func (sw *SubscriptionSweeper) Run(ctx context.Context) error {
	_, err := sw.Sweep(ctx)
	return err
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joshua-takyi/campuscove/internal/events"
	"github.com/joshua-takyi/campuscove/internal/helpers"
	"github.com/joshua-takyi/campuscove/internal/models"
)

type SubscriptionService struct {
	subsRepo     models.SubscriptionRepo
	listingsRepo models.ListingRepo
	publisher    events.Publisher
	clock        Clock
	logger       *slog.Logger
}

func NewSubscriptionService(subsRepo models.SubscriptionRepo, listingsRepo models.ListingRepo, publisher events.Publisher, clock Clock, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subsRepo:     subsRepo,
		listingsRepo: listingsRepo,
		publisher:    publisher,
		clock:        clock,
		logger:       logger,
	}
}

type subscriptionEvent struct {
	SubscriptionID   string                    `json:"subscriptionId"`
	Student          string                    `json:"student"`
	Mess             string                    `json:"mess"`
	Status           models.SubscriptionStatus `json:"status"`
	SubscriptionDate time.Time                 `json:"subscriptionDate"`
	ExpiryDate       time.Time                 `json:"expiryDate"`
}

// Subscribe requests a subscription to a mess. A previous rejected or lapsed
// subscription to the same mess is reopened instead of duplicated.
func (ss *SubscriptionService) Subscribe(ctx context.Context, caller *helpers.EnhancedClaims, rawMessID string) (*models.MessSubscription, error) {
	if !caller.IsStudent() {
		return nil, forbidden("Only students can subscribe to a mess")
	}

	messID, err := models.ParseObjectID(rawMessID)
	if err != nil {
		return nil, badRequest("Invalid mess ID")
	}
	mess, err := ss.listingsRepo.GetMess(ctx, messID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Mess not found")
		}
		return nil, internal("failed to load mess", err)
	}
	if !mess.Availability {
		return nil, badRequest("Mess is not accepting subscriptions")
	}

	now := ss.clock.Now()
	existing, err := ss.subsRepo.FindSubscription(ctx, caller.UserID, mess.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, internal("failed to load subscription", err)
	}

	var sub *models.MessSubscription
	if existing == nil {
		sub, err = ss.subsRepo.CreateSubscription(ctx, models.NewMessSubscription(caller.UserID, mess.ID, now))
		if err != nil {
			// A concurrent request for the same mess got there first.
			if errors.Is(err, models.ErrDuplicate) {
				return nil, badRequest("Subscription already requested")
			}
			return nil, internal("failed to create subscription", err)
		}
	} else {
		switch {
		case existing.Status == models.SubscriptionPending:
			return nil, badRequest("Subscription already requested")
		case existing.Status == models.SubscriptionAccepted && !existing.IsLapsed(now):
			return nil, badRequest("Subscription already active")
		}
		existing.Status = models.SubscriptionPending
		existing.SetSubscriptionDate(now)
		existing.UpdatedAt = now
		sub, err = ss.subsRepo.SaveSubscription(ctx, existing)
		if err != nil {
			return nil, internal("failed to renew subscription", err)
		}
	}

	ss.publish(ctx, events.SubscriptionRequested, sub)
	return sub, nil
}

// RespondToSubscription lets the mess owner accept or reject a request.
// Accepting starts the subscription window at the time of acceptance.
func (ss *SubscriptionService) RespondToSubscription(ctx context.Context, caller *helpers.EnhancedClaims, rawID, rawStatus string) (*models.MessSubscription, error) {
	status, ok := models.ParseSubscriptionStatus(rawStatus)
	if !ok || status == models.SubscriptionPending {
		return nil, badRequest("Invalid status. Must be accepted or rejected")
	}

	id, err := models.ParseObjectID(rawID)
	if err != nil {
		return nil, badRequest("Invalid subscription ID")
	}
	sub, err := ss.subsRepo.GetSubscriptionByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Subscription not found")
		}
		return nil, internal("failed to load subscription", err)
	}

	mess, err := ss.listingsRepo.GetMess(ctx, sub.Mess)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, forbidden("Not authorized to update this subscription")
		}
		return nil, internal("failed to load mess", err)
	}
	if !caller.Is(mess.Owner) {
		return nil, forbidden("Not authorized to update this subscription")
	}

	now := ss.clock.Now()
	sub.Status = status
	if status == models.SubscriptionAccepted {
		sub.SetSubscriptionDate(now)
	}
	sub.UpdatedAt = now

	saved, err := ss.subsRepo.SaveSubscription(ctx, sub)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Subscription not found")
		}
		return nil, internal("failed to update subscription", err)
	}

	ss.publish(ctx, events.SubscriptionStatusUpdated, saved)
	return saved, nil
}

func (ss *SubscriptionService) ListSubscriptions(ctx context.Context, caller *helpers.EnhancedClaims) ([]*models.MessSubscription, error) {
	filter := models.SubscriptionFilter{}
	userID := caller.UserID

	switch {
	case caller.IsStudent():
		filter.Student = &userID
	case caller.HasOwnerRole():
		messes, err := ss.listingsRepo.ListMessIDsByOwner(ctx, userID)
		if err != nil {
			return nil, internal("failed to list messes", err)
		}
		if len(messes) == 0 {
			return []*models.MessSubscription{}, nil
		}
		filter.Messes = messes
	default:
		return []*models.MessSubscription{}, nil
	}

	subs, err := ss.subsRepo.ListSubscriptions(ctx, filter)
	if err != nil {
		return nil, internal("failed to list subscriptions", err)
	}
	return subs, nil
}

func (ss *SubscriptionService) publish(ctx context.Context, key string, sub *models.MessSubscription) {
	evt := subscriptionEvent{
		SubscriptionID:   sub.ID.Hex(),
		Student:          sub.Student.Hex(),
		Mess:             sub.Mess.Hex(),
		Status:           sub.Status,
		SubscriptionDate: sub.SubscriptionDate,
		ExpiryDate:       sub.ExpiryDate,
	}
	if err := ss.publisher.Publish(ctx, key, evt); err != nil {
		ss.logger.Warn("Failed to publish subscription event",
			"event", key,
			"subscription_id", evt.SubscriptionID,
			"error", err,
		)
	}
}

package container

import (
	"log/slog"

	"github.com/joshua-takyi/campuscove/internal/config"
	"github.com/joshua-takyi/campuscove/internal/events"
	"github.com/joshua-takyi/campuscove/internal/middleware"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/services"
)

// Repository is everything the services need from storage.
// *models.MongodbRepo satisfies it.
type Repository interface {
	models.UserRepo
	models.ListingRepo
	models.BookingRepo
	models.SubscriptionRepo
}

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	TokenValidator middleware.TokenValidator
	Publisher      events.Publisher

	UserService         *services.UserService
	BookingService      *services.BookingService
	SubscriptionService *services.SubscriptionService
	Sweeper             *services.SubscriptionSweeper
}

// NewContainer creates a new dependency injection container
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	repo Repository,
	validator middleware.TokenValidator,
	publisher events.Publisher,
	clock services.Clock,
) *Container {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if clock == nil {
		clock = services.SystemClock{}
	}

	return &Container{
		Config:              cfg,
		Logger:              logger,
		TokenValidator:      validator,
		Publisher:           publisher,
		UserService:         services.NewUserService(repo),
		BookingService:      services.NewBookingService(repo, repo, publisher, clock, logger),
		SubscriptionService: services.NewSubscriptionService(repo, repo, publisher, clock, logger),
		Sweeper:             services.NewSubscriptionSweeper(repo, publisher, clock, logger),
	}
}

package services

import (
	"context"
	"errors"

	"github.com/joshua-takyi/campuscove/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService struct {
	userRepo models.UserRepo
}

func NewUserService(userRepo models.UserRepo) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (us *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if id.IsZero() {
		return nil, badRequest("user id is required")
	}
	user, err := us.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, internal("failed to get user", err)
	}
	return user, nil
}

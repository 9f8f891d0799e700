package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	RoleStudent     = "student"
	RoleHostelOwner = "hostelOwner"
	RoleMessOwner   = "messOwner"
	RoleGymOwner    = "gymOwner"
	RoleAdmin       = "admin"

	ownerRoleSuffix = "Owner"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsOwnerRole reports whether role is one of the *Owner roles.
func IsOwnerRole(role string) bool {
	return strings.HasSuffix(role, ownerRoleSuffix) && len(role) > len(ownerRoleSuffix)
}

type UserRepo interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
}

func (mdb *MongodbRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var user User
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

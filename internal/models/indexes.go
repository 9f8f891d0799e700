package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the booking and subscription queries rely on.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	bookings, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	bookingIndexes := []mongo.IndexModel{
		// student dashboard
		{
			Keys: bson.D{
				{Key: "student", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("student_created_at_idx"),
		},
		// owner dashboard
		{
			Keys: bson.D{
				{Key: "owner", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("owner_created_at_idx"),
		},
	}
	if _, err := bookings.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("error creating booking indexes: %w", err)
	}

	subs, err := mdb.GetCollection(ctx, MessSubscriptionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	subIndexes := []mongo.IndexModel{
		// expiry sweep
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expiryDate", Value: 1},
			},
			Options: options.Index().SetName("status_expiry_date_idx"),
		},
		{
			Keys: bson.D{
				{Key: "student", Value: 1},
				{Key: "mess", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("student_mess_unique"),
		},
		{
			Keys:    bson.D{{Key: "mess", Value: 1}},
			Options: options.Index().SetName("mess_idx"),
		},
	}
	if _, err := subs.Indexes().CreateMany(ctx, subIndexes); err != nil {
		return fmt.Errorf("error creating subscription indexes: %w", err)
	}

	return nil
}

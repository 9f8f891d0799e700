package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SubscriptionPeriod is the lifetime of an accepted mess subscription.
const SubscriptionPeriod = 30 * 24 * time.Hour

type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionAccepted SubscriptionStatus = "accepted"
	SubscriptionRejected SubscriptionStatus = "rejected"
)

func ParseSubscriptionStatus(raw string) (SubscriptionStatus, bool) {
	switch s := SubscriptionStatus(raw); s {
	case SubscriptionPending, SubscriptionAccepted, SubscriptionRejected:
		return s, true
	}
	return "", false
}

type MessSubscription struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Student          primitive.ObjectID `bson:"student" json:"student" validate:"required"`
	Mess             primitive.ObjectID `bson:"mess" json:"mess" validate:"required"`
	Status           SubscriptionStatus `bson:"status" json:"status" validate:"required,oneof=pending accepted rejected"`
	SubscriptionDate time.Time          `bson:"subscriptionDate" json:"subscriptionDate"`
	ExpiryDate       time.Time          `bson:"expiryDate" json:"expiryDate"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewMessSubscription(student, mess primitive.ObjectID, now time.Time) *MessSubscription {
	sub := &MessSubscription{
		ID:        primitive.NewObjectID(),
		Student:   student,
		Mess:      mess,
		Status:    SubscriptionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sub.SetSubscriptionDate(now)
	return sub
}

// SetSubscriptionDate is the only writer of SubscriptionDate; it keeps
// ExpiryDate exactly one SubscriptionPeriod later.
func (s *MessSubscription) SetSubscriptionDate(t time.Time) {
	s.SubscriptionDate = t
	s.ExpiryDate = t.Add(SubscriptionPeriod)
}

// IsLapsed reports whether the sweeper should remove the subscription at now.
func (s *MessSubscription) IsLapsed(now time.Time) bool {
	return s.Status == SubscriptionAccepted && s.ExpiryDate.Before(now)
}

type SubscriptionFilter struct {
	Student *primitive.ObjectID
	// Messes restricts results to these messes when non-nil.
	Messes []primitive.ObjectID
}

func (f SubscriptionFilter) toBSON() bson.M {
	filter := bson.M{}
	if f.Student != nil {
		filter["student"] = *f.Student
	}
	if f.Messes != nil {
		filter["mess"] = bson.M{"$in": f.Messes}
	}
	return filter
}

func expiredSubscriptionsFilter(now time.Time) bson.M {
	return bson.M{
		"status":     SubscriptionAccepted,
		"expiryDate": bson.M{"$lt": now},
	}
}

type SubscriptionRepo interface {
	CreateSubscription(ctx context.Context, sub *MessSubscription) (*MessSubscription, error)
	GetSubscriptionByID(ctx context.Context, id primitive.ObjectID) (*MessSubscription, error)
	FindSubscription(ctx context.Context, student, mess primitive.ObjectID) (*MessSubscription, error)
	// SaveSubscription persists status, subscriptionDate, expiryDate and updatedAt.
	SaveSubscription(ctx context.Context, sub *MessSubscription) (*MessSubscription, error)
	ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]*MessSubscription, error)
	DeleteExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

func (mdb *MongodbRepo) CreateSubscription(ctx context.Context, sub *MessSubscription) (*MessSubscription, error) {
	col, err := mdb.GetCollection(ctx, MessSubscriptionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if err := Validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}

	if _, err := col.InsertOne(ctx, sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("subscription for student %s and mess %s: %w", sub.Student.Hex(), sub.Mess.Hex(), ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert subscription into database: %w", err)
	}
	return sub, nil
}

func (mdb *MongodbRepo) GetSubscriptionByID(ctx context.Context, id primitive.ObjectID) (*MessSubscription, error) {
	return mdb.findSubscription(ctx, bson.M{"_id": id})
}

func (mdb *MongodbRepo) FindSubscription(ctx context.Context, student, mess primitive.ObjectID) (*MessSubscription, error) {
	return mdb.findSubscription(ctx, bson.M{"student": student, "mess": mess})
}

func (mdb *MongodbRepo) findSubscription(ctx context.Context, filter bson.M) (*MessSubscription, error) {
	col, err := mdb.GetCollection(ctx, MessSubscriptionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var sub MessSubscription
	if err := col.FindOne(ctx, filter).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("subscription: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("error finding subscription: %w", err)
	}
	return &sub, nil
}

func (mdb *MongodbRepo) SaveSubscription(ctx context.Context, sub *MessSubscription) (*MessSubscription, error) {
	col, err := mdb.GetCollection(ctx, MessSubscriptionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"status":           sub.Status,
			"subscriptionDate": sub.SubscriptionDate,
			"expiryDate":       sub.ExpiryDate,
			"updatedAt":        sub.UpdatedAt,
		},
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": sub.ID}, update)
	if err != nil {
		return nil, fmt.Errorf("error updating subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("subscription %s: %w", sub.ID.Hex(), ErrNotFound)
	}
	return sub, nil
}

func (mdb *MongodbRepo) ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]*MessSubscription, error) {
	col, err := mdb.GetCollection(ctx, MessSubscriptionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := col.Find(ctx, filter.toBSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("error finding subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	subs := []*MessSubscription{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("error decoding subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteExpiredSubscriptions removes accepted subscriptions whose expiryDate
// is before now. Running it twice for the same now deletes nothing the second time.
func (mdb *MongodbRepo) DeleteExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	col, err := mdb.GetCollection(ctx, MessSubscriptionsColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteMany(ctx, expiredSubscriptionsFilter(now))
	if err != nil {
		return 0, fmt.Errorf("error deleting expired subscriptions: %w", err)
	}
	return res.DeletedCount, nil
}

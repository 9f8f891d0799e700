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

type HostelRoom struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner        primitive.ObjectID `bson:"owner" json:"owner"`
	RoomName     string             `bson:"roomName" json:"roomName"`
	Price        float64            `bson:"price" json:"price"`
	Address      string             `bson:"address" json:"address"`
	RoomType     string             `bson:"roomType" json:"roomType"`
	Gender       string             `bson:"gender" json:"gender"`
	Capacity     int                `bson:"capacity" json:"capacity"`
	Images       []string           `bson:"images" json:"images"`
	Availability bool               `bson:"availability" json:"availability"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HostelRoomSnapshot is the read-only view of a room attached to bookings.
type HostelRoomSnapshot struct {
	RoomName string   `json:"roomName"`
	Price    float64  `json:"price"`
	Address  string   `json:"address"`
	RoomType string   `json:"roomType"`
	Gender   string   `json:"gender"`
	Capacity int      `json:"capacity"`
	Images   []string `json:"images"`
}

func (r *HostelRoom) Snapshot() *HostelRoomSnapshot {
	images := make([]string, len(r.Images))
	copy(images, r.Images)
	return &HostelRoomSnapshot{
		RoomName: r.RoomName,
		Price:    r.Price,
		Address:  r.Address,
		RoomType: r.RoomType,
		Gender:   r.Gender,
		Capacity: r.Capacity,
		Images:   images,
	}
}

type Mess struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner        primitive.ObjectID `bson:"owner" json:"owner"`
	MessName     string             `bson:"messName" json:"messName"`
	MonthlyPrice float64            `bson:"monthlyPrice" json:"monthlyPrice"`
	Address      string             `bson:"address" json:"address"`
	Availability bool               `bson:"availability" json:"availability"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ListingRepo is the read-only listing store used by the booking and
// subscription lifecycles.
type ListingRepo interface {
	GetHostelRoom(ctx context.Context, id primitive.ObjectID) (*HostelRoom, error)
	GetMess(ctx context.Context, id primitive.ObjectID) (*Mess, error)
	ListMessIDsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error)
}

func (mdb *MongodbRepo) GetHostelRoom(ctx context.Context, id primitive.ObjectID) (*HostelRoom, error) {
	col, err := mdb.GetCollection(ctx, HostelRoomsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var room HostelRoom
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("hostel room %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding hostel room: %w", err)
	}
	return &room, nil
}

func (mdb *MongodbRepo) GetMess(ctx context.Context, id primitive.ObjectID) (*Mess, error) {
	col, err := mdb.GetCollection(ctx, MessesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var mess Mess
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&mess); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mess %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding mess: %w", err)
	}
	return &mess, nil
}

func (mdb *MongodbRepo) ListMessIDsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	col, err := mdb.GetCollection(ctx, MessesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := col.Find(ctx, bson.M{"owner": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding messes: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding mess: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return ids, nil
}

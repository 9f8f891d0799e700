package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = validator.New()

var (
	// ErrNotFound is returned when a document id does not resolve.
	ErrNotFound = errors.New("document not found")
	// ErrStatusChanged is returned by conditional updates whose expected status no longer matches.
	ErrStatusChanged = errors.New("document status changed")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate document")
)

const (
	UsersColName             = "users"
	BookingsColName          = "bookings"
	HostelRoomsColName       = "hostelrooms"
	MessesColName            = "messes"
	MessSubscriptionsColName = "messsubscriptions"
)

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

// ParseObjectID trims the raw id and converts it to an ObjectID.
func ParseObjectID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(trimID(raw))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

// trimID strips spaces and surrounding quotes which clients sometimes send
// when ids are interpolated from JSON strings or templates.
func trimID(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "\"'")
}

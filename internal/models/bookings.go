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

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus accepts only the four known booking states.
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	switch s := BookingStatus(raw); s {
	case BookingPending, BookingAccepted, BookingRejected, BookingCancelled:
		return s, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch s := PaymentStatus(raw); s {
	case PaymentUnpaid, PaymentPaid:
		return s, true
	}
	return "", false
}

type ServiceType string

const (
	ServiceHostel ServiceType = "hostel"
	ServiceMess   ServiceType = "mess"
	ServiceGym    ServiceType = "gym"
)

type Booking struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Student        primitive.ObjectID     `bson:"student" json:"student" validate:"required"`
	Owner          primitive.ObjectID     `bson:"owner" json:"owner" validate:"required"`
	ServiceType    ServiceType            `bson:"serviceType" json:"serviceType" validate:"required,oneof=hostel mess gym"`
	ServiceID      primitive.ObjectID     `bson:"serviceId" json:"serviceId" validate:"required"`
	BookingDetails map[string]interface{} `bson:"bookingDetails,omitempty" json:"bookingDetails,omitempty"`
	Status         BookingStatus          `bson:"status" json:"status" validate:"required,oneof=pending accepted rejected cancelled"`
	PaymentStatus  PaymentStatus          `bson:"paymentStatus" json:"paymentStatus" validate:"required,oneof=unpaid paid"`
	CreatedAt      time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time              `bson:"updatedAt" json:"updatedAt"`

	// Resolved on read, never stored.
	ServiceDetails *HostelRoomSnapshot `bson:"-" json:"serviceDetails,omitempty"`
}

// NewBooking returns a pending, unpaid booking.
func NewBooking(student, owner primitive.ObjectID, serviceType ServiceType, serviceID primitive.ObjectID, details map[string]interface{}, now time.Time) *Booking {
	return &Booking{
		ID:             primitive.NewObjectID(),
		Student:        student,
		Owner:          owner,
		ServiceType:    serviceType,
		ServiceID:      serviceID,
		BookingDetails: details,
		Status:         BookingPending,
		PaymentStatus:  PaymentUnpaid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

type BookingFilter struct {
	Student *primitive.ObjectID
	Owner   *primitive.ObjectID
	Status  BookingStatus
}

func (f BookingFilter) toBSON() bson.M {
	filter := bson.M{}
	if f.Student != nil {
		filter["student"] = *f.Student
	}
	if f.Owner != nil {
		filter["owner"] = *f.Owner
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, booking *Booking) (*Booking, error)
	GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	// ListBookings returns matches newest first.
	ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, error)
	// UpdateBookingStatus sets status when the current status is one of
	// expected; an empty expected list matches any status.
	UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, expected []BookingStatus, status BookingStatus, at time.Time) (*Booking, error)
	// UpdatePaymentStatus sets paymentStatus when the booking is in required status.
	UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, required BookingStatus, payment PaymentStatus, at time.Time) (*Booking, error)
}

func (mdb *MongodbRepo) CreateBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if err := Validate.Struct(booking); err != nil {
		return nil, fmt.Errorf("invalid booking: %w", err)
	}
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}

	if _, err := col.InsertOne(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to insert booking into database: %w", err)
	}
	return booking, nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := col.Find(ctx, filter.toBSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

func (mdb *MongodbRepo) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, expected []BookingStatus, status BookingStatus, at time.Time) (*Booking, error) {
	filter := bson.M{"_id": id}
	if len(expected) > 0 {
		filter["status"] = bson.M{"$in": expected}
	}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": at}}
	return mdb.updateBooking(ctx, id, filter, update, len(expected) > 0)
}

func (mdb *MongodbRepo) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, required BookingStatus, payment PaymentStatus, at time.Time) (*Booking, error) {
	filter := bson.M{"_id": id, "status": required}
	update := bson.M{"$set": bson.M{"paymentStatus": payment, "updatedAt": at}}
	return mdb.updateBooking(ctx, id, filter, update, true)
}

func (mdb *MongodbRepo) updateBooking(ctx context.Context, id primitive.ObjectID, filter, update bson.M, conditional bool) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking Booking
	err = col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error updating booking: %w", err)
	}
	if !conditional {
		return nil, fmt.Errorf("booking %s: %w", id.Hex(), ErrNotFound)
	}

	// The conditional filter missed; tell a vanished booking apart from a status race.
	count, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("error counting bookings: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("booking %s: %w", id.Hex(), ErrNotFound)
	}
	return nil, fmt.Errorf("booking %s: %w", id.Hex(), ErrStatusChanged)
}

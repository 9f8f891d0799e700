package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/campuscove/internal/events"
	"github.com/joshua-takyi/campuscove/internal/helpers"
	"github.com/joshua-takyi/campuscove/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingService struct {
	bookingsRepo models.BookingRepo
	listingsRepo models.ListingRepo
	publisher    events.Publisher
	clock        Clock
	logger       *slog.Logger
}

func NewBookingService(bookingsRepo models.BookingRepo, listingsRepo models.ListingRepo, publisher events.Publisher, clock Clock, logger *slog.Logger) *BookingService {
	return &BookingService{
		bookingsRepo: bookingsRepo,
		listingsRepo: listingsRepo,
		publisher:    publisher,
		clock:        clock,
		logger:       logger,
	}
}

type bookingEvent struct {
	BookingID     string               `json:"bookingId"`
	Student       string               `json:"student"`
	Owner         string               `json:"owner"`
	ServiceType   models.ServiceType   `json:"serviceType"`
	ServiceID     string               `json:"serviceId"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	At            time.Time            `json:"at"`
}

func (bs *BookingService) CreateBooking(ctx context.Context, caller *helpers.EnhancedClaims, serviceType, serviceID string, details map[string]interface{}) (*models.Booking, error) {
	if !caller.IsStudent() {
		return nil, forbidden("Only students can create bookings")
	}

	st := models.ServiceType(serviceType)
	owner, listingID, err := bs.resolveBookable(ctx, st, serviceID)
	if err != nil {
		return nil, err
	}

	booking := models.NewBooking(caller.UserID, owner, st, listingID, details, bs.clock.Now())
	created, err := bs.bookingsRepo.CreateBooking(ctx, booking)
	if err != nil {
		return nil, internal("failed to create booking", err)
	}

	bs.publish(ctx, events.BookingCreated, created)
	return created, nil
}

// resolveBookable returns the owner and id of the listing a booking targets.
// Each service type is its own arm so mess and gym support can be added in place.
func (bs *BookingService) resolveBookable(ctx context.Context, st models.ServiceType, rawID string) (primitive.ObjectID, primitive.ObjectID, error) {
	switch st {
	case models.ServiceHostel:
		id, err := models.ParseObjectID(rawID)
		if err != nil {
			return primitive.NilObjectID, primitive.NilObjectID, badRequest("Invalid service ID")
		}
		room, err := bs.listingsRepo.GetHostelRoom(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return primitive.NilObjectID, primitive.NilObjectID, notFound("Hostel room not found")
			}
			return primitive.NilObjectID, primitive.NilObjectID, internal("failed to load hostel room", err)
		}
		if !room.Availability {
			return primitive.NilObjectID, primitive.NilObjectID, badRequest("Hostel room is not available for booking")
		}
		return room.Owner, room.ID, nil

	case models.ServiceMess:
		return primitive.NilObjectID, primitive.NilObjectID, notImplemented("Mess booking is not implemented yet")

	case models.ServiceGym:
		return primitive.NilObjectID, primitive.NilObjectID, notImplemented("Gym booking is not implemented yet")

	default:
		return primitive.NilObjectID, primitive.NilObjectID, badRequest("Invalid service type")
	}
}

// ListBookings returns the caller's bookings, newest first. Unknown status
// filters are ignored.
func (bs *BookingService) ListBookings(ctx context.Context, caller *helpers.EnhancedClaims, rawStatus string) ([]*models.Booking, error) {
	filter := models.BookingFilter{}
	if status, ok := models.ParseBookingStatus(rawStatus); ok {
		filter.Status = status
	}

	userID := caller.UserID
	switch {
	case caller.IsStudent():
		filter.Student = &userID
	case caller.HasOwnerRole():
		filter.Owner = &userID
	case caller.IsAdmin():
	default:
		return []*models.Booking{}, nil
	}

	bookings, err := bs.bookingsRepo.ListBookings(ctx, filter)
	if err != nil {
		return nil, internal("failed to list bookings", err)
	}

	for _, b := range bookings {
		bs.attachServiceDetails(ctx, b)
	}
	return bookings, nil
}

func (bs *BookingService) GetBooking(ctx context.Context, caller *helpers.EnhancedClaims, rawID string) (*models.Booking, error) {
	booking, err := bs.loadBooking(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.Is(booking.Student) && !caller.Is(booking.Owner) {
		return nil, forbidden("Not authorized to view this booking")
	}

	bs.attachServiceDetails(ctx, booking)
	return booking, nil
}

// UpdateBookingStatus lets the owner accept or reject a booking. The current
// status is not checked, so an owner may change a previous decision.
func (bs *BookingService) UpdateBookingStatus(ctx context.Context, caller *helpers.EnhancedClaims, rawID, rawStatus string) (*models.Booking, error) {
	status, ok := models.ParseBookingStatus(rawStatus)
	if !ok || (status != models.BookingAccepted && status != models.BookingRejected) {
		return nil, badRequest("Invalid status. Must be accepted or rejected")
	}

	booking, err := bs.loadBooking(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.Is(booking.Owner) {
		return nil, forbidden("Not authorized to update this booking")
	}

	updated, err := bs.bookingsRepo.UpdateBookingStatus(ctx, booking.ID, nil, status, bs.clock.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Booking not found")
		}
		return nil, internal("failed to update booking status", err)
	}

	bs.publish(ctx, events.BookingStatusUpdated, updated)
	return updated, nil
}

func (bs *BookingService) CancelBooking(ctx context.Context, caller *helpers.EnhancedClaims, rawID string) (*models.Booking, error) {
	booking, err := bs.loadBooking(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.Is(booking.Student) {
		return nil, forbidden("Not authorized to cancel this booking")
	}
	if booking.Status != models.BookingPending {
		return nil, cannotCancel(booking.Status)
	}

	updated, err := bs.bookingsRepo.UpdateBookingStatus(ctx, booking.ID, []models.BookingStatus{models.BookingPending}, models.BookingCancelled, bs.clock.Now())
	if err != nil {
		if errors.Is(err, models.ErrStatusChanged) {
			// The owner decided between our read and write; report what they decided.
			current, lerr := bs.bookingsRepo.GetBookingByID(ctx, booking.ID)
			if lerr != nil {
				return nil, internal("failed to reload booking", lerr)
			}
			return nil, cannotCancel(current.Status)
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Booking not found")
		}
		return nil, internal("failed to cancel booking", err)
	}

	bs.publish(ctx, events.BookingCancelled, updated)
	return updated, nil
}

func cannotCancel(status models.BookingStatus) *Error {
	return badRequest(fmt.Sprintf("Cannot cancel a booking that is %s", status))
}

func (bs *BookingService) UpdatePaymentStatus(ctx context.Context, caller *helpers.EnhancedClaims, rawID, rawPayment string) (*models.Booking, error) {
	payment, ok := models.ParsePaymentStatus(rawPayment)
	if !ok {
		return nil, badRequest("Invalid payment status. Must be paid or unpaid")
	}

	booking, err := bs.loadBooking(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !caller.Is(booking.Student) {
		return nil, forbidden("Not authorized to update payment for this booking")
	}
	if booking.Status != models.BookingAccepted {
		return nil, badRequest("Payment can only be updated for accepted bookings")
	}

	updated, err := bs.bookingsRepo.UpdatePaymentStatus(ctx, booking.ID, models.BookingAccepted, payment, bs.clock.Now())
	if err != nil {
		if errors.Is(err, models.ErrStatusChanged) {
			return nil, badRequest("Payment can only be updated for accepted bookings")
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Booking not found")
		}
		return nil, internal("failed to update payment status", err)
	}

	bs.publish(ctx, events.BookingPaymentUpdated, updated)
	return updated, nil
}

func (bs *BookingService) loadBooking(ctx context.Context, rawID string) (*models.Booking, error) {
	id, err := models.ParseObjectID(rawID)
	if err != nil {
		return nil, badRequest("Invalid booking ID")
	}
	booking, err := bs.bookingsRepo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound("Booking not found")
		}
		return nil, internal("failed to load booking", err)
	}
	return booking, nil
}

// attachServiceDetails resolves the listing snapshot for display. A failed
// lookup leaves ServiceDetails nil and never fails the caller.
func (bs *BookingService) attachServiceDetails(ctx context.Context, b *models.Booking) {
	snapshot, ok := bs.serviceDetails(ctx, b)
	if ok {
		b.ServiceDetails = snapshot
	}
}

func (bs *BookingService) serviceDetails(ctx context.Context, b *models.Booking) (*models.HostelRoomSnapshot, bool) {
	if b.ServiceType != models.ServiceHostel {
		return nil, false
	}
	room, err := bs.listingsRepo.GetHostelRoom(ctx, b.ServiceID)
	if err != nil {
		bs.logger.Warn("Failed to resolve service details",
			"booking_id", b.ID.Hex(),
			"service_id", b.ServiceID.Hex(),
			"error", err,
		)
		return nil, false
	}
	return room.Snapshot(), true
}

func (bs *BookingService) publish(ctx context.Context, key string, b *models.Booking) {
	evt := bookingEvent{
		BookingID:     b.ID.Hex(),
		Student:       b.Student.Hex(),
		Owner:         b.Owner.Hex(),
		ServiceType:   b.ServiceType,
		ServiceID:     b.ServiceID.Hex(),
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		At:            b.UpdatedAt,
	}
	if err := bs.publisher.Publish(ctx, key, evt); err != nil {
		bs.logger.Warn("Failed to publish booking event",
			"event", key,
			"booking_id", evt.BookingID,
			"error", err,
		)
	}
}

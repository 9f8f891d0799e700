// Package modelstest provides an in-memory implementation of the repository
// interfaces for service and handler tests.
package modelstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/joshua-takyi/campuscove/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	rooms    map[primitive.ObjectID]models.HostelRoom
	messes   map[primitive.ObjectID]models.Mess
	bookings map[primitive.ObjectID]models.Booking
	subs     map[primitive.ObjectID]models.MessSubscription

	// ListingErr, when set, is returned by every listing lookup.
	ListingErr error
	// BeforeBookingUpdate runs before a status or payment write is applied,
	// outside the store lock. Tests use it to interleave a competing write.
	BeforeBookingUpdate func(id primitive.ObjectID)
}

func NewStore() *Store {
	return &Store{
		users:    map[primitive.ObjectID]models.User{},
		rooms:    map[primitive.ObjectID]models.HostelRoom{},
		messes:   map[primitive.ObjectID]models.Mess{},
		bookings: map[primitive.ObjectID]models.Booking{},
		subs:     map[primitive.ObjectID]models.MessSubscription{},
	}
}

func (s *Store) AddUser(name, role string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: primitive.NewObjectID(), Name: name, Email: name + "@campuscove.test", Role: role}
	s.users[u.ID] = u
	return &u
}

func (s *Store) AddHostelRoom(owner primitive.ObjectID, name string, available bool) *models.HostelRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := models.HostelRoom{
		ID:           primitive.NewObjectID(),
		Owner:        owner,
		RoomName:     name,
		Price:        4500,
		Address:      "12 College Road",
		RoomType:     "single",
		Gender:       "any",
		Capacity:     1,
		Images:       []string{"https://img.campuscove.test/" + name + ".jpg"},
		Availability: available,
	}
	s.rooms[r.ID] = r
	return &r
}

func (s *Store) AddMess(owner primitive.ObjectID, name string, available bool) *models.Mess {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := models.Mess{ID: primitive.NewObjectID(), Owner: owner, MessName: name, MonthlyPrice: 3000, Availability: available}
	s.messes[m.ID] = m
	return &m
}

func (s *Store) DeleteHostelRoom(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}

// PutBooking stores b as is, bypassing validation.
func (s *Store) PutBooking(b models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

// PutSubscription stores sub as is, bypassing validation.
func (s *Store) PutSubscription(sub models.MessSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
}

func (s *Store) Booking(id primitive.ObjectID) (models.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return b, ok
}

func (s *Store) Subscription(id primitive.ObjectID) (models.MessSubscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	return sub, ok
}

func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *Store) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func notFound(kind string, id primitive.ObjectID) error {
	return fmt.Errorf("%s %s: %w", kind, id.Hex(), models.ErrNotFound)
}

// UserRepo

func (s *Store) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

// ListingRepo

func (s *Store) GetHostelRoom(_ context.Context, id primitive.ObjectID) (*models.HostelRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListingErr != nil {
		return nil, s.ListingErr
	}
	r, ok := s.rooms[id]
	if !ok {
		return nil, notFound("hostel room", id)
	}
	return &r, nil
}

func (s *Store) GetMess(_ context.Context, id primitive.ObjectID) (*models.Mess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListingErr != nil {
		return nil, s.ListingErr
	}
	m, ok := s.messes[id]
	if !ok {
		return nil, notFound("mess", id)
	}
	return &m, nil
}

func (s *Store) ListMessIDsByOwner(_ context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListingErr != nil {
		return nil, s.ListingErr
	}
	var ids []primitive.ObjectID
	for _, m := range s.messes {
		if m.Owner == ownerID {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// BookingRepo

func (s *Store) CreateBooking(_ context.Context, b *models.Booking) (*models.Booking, error) {
	if err := models.Validate.Struct(b); err != nil {
		return nil, fmt.Errorf("invalid booking: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	stored := *b
	stored.ServiceDetails = nil
	s.bookings[b.ID] = stored
	return &stored, nil
}

func (s *Store) GetBookingByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (s *Store) ListBookings(_ context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Booking{}
	for _, b := range s.bookings {
		if filter.Student != nil && b.Student != *filter.Student {
			continue
		}
		if filter.Owner != nil && b.Owner != *filter.Owner {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, &b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateBookingStatus(_ context.Context, id primitive.ObjectID, expected []models.BookingStatus, status models.BookingStatus, at time.Time) (*models.Booking, error) {
	if s.BeforeBookingUpdate != nil {
		s.BeforeBookingUpdate(id)
	}
	return s.updateBooking(id, func(b *models.Booking) bool {
		if len(expected) > 0 && !containsStatus(expected, b.Status) {
			return false
		}
		b.Status = status
		b.UpdatedAt = at
		return true
	})
}

func (s *Store) UpdatePaymentStatus(_ context.Context, id primitive.ObjectID, required models.BookingStatus, payment models.PaymentStatus, at time.Time) (*models.Booking, error) {
	if s.BeforeBookingUpdate != nil {
		s.BeforeBookingUpdate(id)
	}
	return s.updateBooking(id, func(b *models.Booking) bool {
		if b.Status != required {
			return false
		}
		b.PaymentStatus = payment
		b.UpdatedAt = at
		return true
	})
}

func (s *Store) updateBooking(id primitive.ObjectID, apply func(*models.Booking) bool) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	if !apply(&b) {
		return nil, fmt.Errorf("booking %s: %w", id.Hex(), models.ErrStatusChanged)
	}
	s.bookings[id] = b
	return &b, nil
}

func containsStatus(list []models.BookingStatus, s models.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SubscriptionRepo

func (s *Store) CreateSubscription(_ context.Context, sub *models.MessSubscription) (*models.MessSubscription, error) {
	if err := models.Validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.Student == sub.Student && existing.Mess == sub.Mess {
			return nil, fmt.Errorf("subscription for student %s and mess %s: %w", sub.Student.Hex(), sub.Mess.Hex(), models.ErrDuplicate)
		}
	}
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	stored := *sub
	s.subs[sub.ID] = stored
	return &stored, nil
}

func (s *Store) GetSubscriptionByID(_ context.Context, id primitive.ObjectID) (*models.MessSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, notFound("subscription", id)
	}
	return &sub, nil
}

func (s *Store) FindSubscription(_ context.Context, student, mess primitive.ObjectID) (*models.MessSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.Student == student && sub.Mess == mess {
			return &sub, nil
		}
	}
	return nil, fmt.Errorf("subscription: %w", models.ErrNotFound)
}

func (s *Store) SaveSubscription(_ context.Context, sub *models.MessSubscription) (*models.MessSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.subs[sub.ID]
	if !ok {
		return nil, notFound("subscription", sub.ID)
	}
	stored.Status = sub.Status
	stored.SubscriptionDate = sub.SubscriptionDate
	stored.ExpiryDate = sub.ExpiryDate
	stored.UpdatedAt = sub.UpdatedAt
	s.subs[sub.ID] = stored
	return &stored, nil
}

func (s *Store) ListSubscriptions(_ context.Context, filter models.SubscriptionFilter) ([]*models.MessSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.MessSubscription{}
	for _, sub := range s.subs {
		if filter.Student != nil && sub.Student != *filter.Student {
			continue
		}
		if filter.Messes != nil && !containsID(filter.Messes, sub.Mess) {
			continue
		}
		out = append(out, &sub)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteExpiredSubscriptions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sub := range s.subs {
		if sub.IsLapsed(now) {
			delete(s.subs, id)
			n++
		}
	}
	return n, nil
}

func containsID(list []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

var (
	_ models.UserRepo         = (*Store)(nil)
	_ models.ListingRepo      = (*Store)(nil)
	_ models.BookingRepo      = (*Store)(nil)
	_ models.SubscriptionRepo = (*Store)(nil)
)

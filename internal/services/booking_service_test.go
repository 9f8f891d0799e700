package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joshua-takyi/campuscove/internal/events"
	"github.com/joshua-takyi/campuscove/internal/events/eventstest"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/models/modelstest"
	"github.com/joshua-takyi/campuscove/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type bookingFixture struct {
	store     *modelstest.Store
	clock     *fakeClock
	publisher *eventstest.Recorder
	svc       *services.BookingService

	studentA *models.User
	studentB *models.User
	owner    *models.User
	admin    *models.User
	room     *models.HostelRoom
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	store := modelstest.NewStore()
	clock := newFakeClock()
	pub := &eventstest.Recorder{}

	f := &bookingFixture{
		store:     store,
		clock:     clock,
		publisher: pub,
		svc:       services.NewBookingService(store, store, pub, clock, discardLogger()),
		studentA:  store.AddUser("ama", models.RoleStudent),
		studentB:  store.AddUser("kofi", models.RoleStudent),
		owner:     store.AddUser("yaw", models.RoleHostelOwner),
		admin:     store.AddUser("root", models.RoleAdmin),
	}
	f.room = store.AddHostelRoom(f.owner.ID, "room-a1", true)
	return f
}

func (f *bookingFixture) create(t *testing.T) *models.Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), claimsFor(f.studentA), "hostel", f.room.ID.Hex(), map[string]interface{}{"moveIn": "2024-04-01"})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func TestCreateBooking_Hostel(t *testing.T) {
	f := newBookingFixture(t)

	b := f.create(t)

	if b.Status != models.BookingPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
	if b.PaymentStatus != models.PaymentUnpaid {
		t.Errorf("paymentStatus = %q, want unpaid", b.PaymentStatus)
	}
	if b.Owner != f.owner.ID {
		t.Errorf("owner = %s, want %s", b.Owner.Hex(), f.owner.ID.Hex())
	}
	if b.Student != f.studentA.ID {
		t.Errorf("student = %s, want %s", b.Student.Hex(), f.studentA.ID.Hex())
	}
	if b.ServiceID != f.room.ID || b.ServiceType != models.ServiceHostel {
		t.Errorf("service = %s/%s, want hostel/%s", b.ServiceType, b.ServiceID.Hex(), f.room.ID.Hex())
	}
	if !b.CreatedAt.Equal(f.clock.Now()) || !b.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("timestamps = %v/%v, want %v", b.CreatedAt, b.UpdatedAt, f.clock.Now())
	}
	if got := f.publisher.Keys(); len(got) != 1 || got[0] != events.BookingCreated {
		t.Errorf("events = %v, want [%s]", got, events.BookingCreated)
	}
}

func TestCreateBooking_Failures(t *testing.T) {
	f := newBookingFixture(t)
	unavailable := f.store.AddHostelRoom(f.owner.ID, "room-b2", false)

	tests := []struct {
		name        string
		caller      *models.User
		serviceType string
		serviceID   string
		want        services.ErrorKind
	}{
		{"owner cannot book", f.owner, "hostel", f.room.ID.Hex(), services.KindForbidden},
		{"admin cannot book", f.admin, "hostel", f.room.ID.Hex(), services.KindForbidden},
		{"mess not implemented", f.studentA, "mess", f.room.ID.Hex(), services.KindNotImplemented},
		{"gym not implemented", f.studentA, "gym", f.room.ID.Hex(), services.KindNotImplemented},
		{"unknown service type", f.studentA, "spa", f.room.ID.Hex(), services.KindBadRequest},
		{"malformed service id", f.studentA, "hostel", "not-an-id", services.KindBadRequest},
		{"missing listing", f.studentA, "hostel", primitive.NewObjectID().Hex(), services.KindNotFound},
		{"unavailable listing", f.studentA, "hostel", unavailable.ID.Hex(), services.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(context.Background(), claimsFor(tt.caller), tt.serviceType, tt.serviceID, nil)
			assertKind(t, err, tt.want)
		})
	}

	if n := f.store.BookingCount(); n != 0 {
		t.Errorf("failed creates left %d bookings behind", n)
	}
	if keys := f.publisher.Keys(); len(keys) != 0 {
		t.Errorf("failed creates published %v", keys)
	}
}

func TestCreateBooking_ListingStoreError(t *testing.T) {
	f := newBookingFixture(t)
	f.store.ListingErr = errors.New("connection reset")

	_, err := f.svc.CreateBooking(context.Background(), claimsFor(f.studentA), "hostel", f.room.ID.Hex(), nil)
	assertKind(t, err, services.KindInternal)
}

func TestListBookings_ScopedByRole(t *testing.T) {
	f := newBookingFixture(t)
	otherOwner := f.store.AddUser("esi", models.RoleHostelOwner)
	otherRoom := f.store.AddHostelRoom(otherOwner.ID, "room-c3", true)

	first := f.create(t)
	f.clock.Advance(time.Minute)
	second := f.create(t)
	f.clock.Advance(time.Minute)
	if _, err := f.svc.CreateBooking(context.Background(), claimsFor(f.studentB), "hostel", otherRoom.ID.Hex(), nil); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	ctx := context.Background()

	got, err := f.svc.ListBookings(ctx, claimsFor(f.studentA), "")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("student A sees %d bookings, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("bookings not ordered newest first")
	}
	for _, b := range got {
		if b.Student != f.studentA.ID {
			t.Errorf("student A received booking of %s", b.Student.Hex())
		}
	}

	got, err = f.svc.ListBookings(ctx, claimsFor(f.owner), "")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("owner sees %d bookings, want 2", len(got))
	}

	got, err = f.svc.ListBookings(ctx, claimsFor(f.admin), "")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("admin sees %d bookings, want 3", len(got))
	}

	guest := f.store.AddUser("guest", "guest")
	got, err = f.svc.ListBookings(ctx, claimsFor(guest), "")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unknown role sees %d bookings, want 0", len(got))
	}
}

func TestListBookings_StatusFilter(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	pending := f.create(t)
	accepted := f.create(t)
	if _, err := f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), accepted.ID.Hex(), "accepted"); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}

	got, err := f.svc.ListBookings(ctx, claimsFor(f.studentA), "pending")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("status=pending returned %d bookings", len(got))
	}

	// Unknown filters are ignored rather than rejected.
	got, err = f.svc.ListBookings(ctx, claimsFor(f.studentA), "bogus")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("status=bogus returned %d bookings, want 2", len(got))
	}
}

func TestListBookings_AttachesServiceDetails(t *testing.T) {
	f := newBookingFixture(t)
	f.create(t)

	got, err := f.svc.ListBookings(context.Background(), claimsFor(f.studentA), "")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	d := got[0].ServiceDetails
	if d == nil {
		t.Fatal("expected serviceDetails to be attached")
	}
	if d.RoomName != f.room.RoomName || d.Price != f.room.Price || len(d.Images) != 1 {
		t.Errorf("unexpected snapshot %+v", d)
	}
}

func TestListBookings_DetailLookupFailureIsSwallowed(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)
	f.store.DeleteHostelRoom(f.room.ID)

	got, err := f.svc.ListBookings(context.Background(), claimsFor(f.studentA), "")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("expected the booking to still be listed")
	}
	if got[0].ServiceDetails != nil {
		t.Errorf("expected no serviceDetails, got %+v", got[0].ServiceDetails)
	}

	f.store.ListingErr = errors.New("timeout")
	one, err := f.svc.GetBooking(context.Background(), claimsFor(f.studentA), b.ID.Hex())
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if one.ServiceDetails != nil {
		t.Errorf("expected no serviceDetails, got %+v", one.ServiceDetails)
	}
}

func TestGetBooking(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)
	ctx := context.Background()

	for _, u := range []*models.User{f.studentA, f.owner} {
		got, err := f.svc.GetBooking(ctx, claimsFor(u), b.ID.Hex())
		if err != nil {
			t.Fatalf("GetBooking as %s: %v", u.Role, err)
		}
		if got.ServiceDetails == nil {
			t.Errorf("GetBooking as %s: missing serviceDetails", u.Role)
		}
	}

	_, err := f.svc.GetBooking(ctx, claimsFor(f.studentB), b.ID.Hex())
	assertKind(t, err, services.KindForbidden)

	_, err = f.svc.GetBooking(ctx, claimsFor(f.admin), b.ID.Hex())
	assertKind(t, err, services.KindForbidden)

	_, err = f.svc.GetBooking(ctx, claimsFor(f.studentA), primitive.NewObjectID().Hex())
	assertKind(t, err, services.KindNotFound)

	_, err = f.svc.GetBooking(ctx, claimsFor(f.studentA), "xyz")
	assertKind(t, err, services.KindBadRequest)
}

func TestUpdateBookingStatus(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)
	ctx := context.Background()

	_, err := f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "cancelled")
	assertKind(t, err, services.KindBadRequest)

	_, err = f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), primitive.NewObjectID().Hex(), "accepted")
	assertKind(t, err, services.KindNotFound)

	_, err = f.svc.UpdateBookingStatus(ctx, claimsFor(f.studentA), b.ID.Hex(), "accepted")
	assertKind(t, err, services.KindForbidden)

	f.clock.Advance(time.Hour)
	got, err := f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "accepted")
	if err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if got.Status != models.BookingAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}
	if !got.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("updatedAt = %v, want %v", got.UpdatedAt, f.clock.Now())
	}

	// Owners may change their decision.
	got, err = f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "rejected")
	if err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if got.Status != models.BookingRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b := f.create(t)
	_, err := f.svc.CancelBooking(ctx, claimsFor(f.owner), b.ID.Hex())
	assertKind(t, err, services.KindForbidden)

	_, err = f.svc.CancelBooking(ctx, claimsFor(f.studentB), b.ID.Hex())
	assertKind(t, err, services.KindForbidden)

	got, err := f.svc.CancelBooking(ctx, claimsFor(f.studentA), b.ID.Hex())
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if got.Status != models.BookingCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	_, err = f.svc.CancelBooking(ctx, claimsFor(f.studentA), b.ID.Hex())
	assertKind(t, err, services.KindBadRequest)
}

func TestCancelBooking_AfterAcceptance(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)

	if _, err := f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "accepted"); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}

	_, err := f.svc.CancelBooking(ctx, claimsFor(f.studentA), b.ID.Hex())
	assertKind(t, err, services.KindBadRequest)
	if want := "Cannot cancel a booking that is accepted"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	stored, _ := f.store.Booking(b.ID)
	if stored.Status != models.BookingAccepted {
		t.Errorf("stored status = %q, want accepted", stored.Status)
	}
}

func TestCancelBooking_LosesRaceToOwner(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)

	// The owner accepts between the cancel's read and its conditional write.
	f.store.BeforeBookingUpdate = func(id primitive.ObjectID) {
		f.store.BeforeBookingUpdate = nil
		stored, _ := f.store.Booking(id)
		stored.Status = models.BookingAccepted
		f.store.PutBooking(stored)
	}

	_, err := f.svc.CancelBooking(context.Background(), claimsFor(f.studentA), b.ID.Hex())
	assertKind(t, err, services.KindBadRequest)
	if want := "Cannot cancel a booking that is accepted"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	stored, _ := f.store.Booking(b.ID)
	if stored.Status != models.BookingAccepted {
		t.Errorf("stale cancel overwrote owner decision: %q", stored.Status)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)

	_, err := f.svc.UpdatePaymentStatus(ctx, claimsFor(f.studentA), b.ID.Hex(), "refunded")
	assertKind(t, err, services.KindBadRequest)

	// Not yet accepted.
	_, err = f.svc.UpdatePaymentStatus(ctx, claimsFor(f.studentA), b.ID.Hex(), "paid")
	assertKind(t, err, services.KindBadRequest)
	stored, _ := f.store.Booking(b.ID)
	if stored.PaymentStatus != models.PaymentUnpaid {
		t.Fatalf("payment mutated before acceptance: %q", stored.PaymentStatus)
	}

	if _, err := f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "accepted"); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}

	_, err = f.svc.UpdatePaymentStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "paid")
	assertKind(t, err, services.KindForbidden)

	_, err = f.svc.UpdatePaymentStatus(ctx, claimsFor(f.studentA), primitive.NewObjectID().Hex(), "paid")
	assertKind(t, err, services.KindNotFound)

	got, err := f.svc.UpdatePaymentStatus(ctx, claimsFor(f.studentA), b.ID.Hex(), "paid")
	if err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	if got.PaymentStatus != models.PaymentPaid || got.Status != models.BookingAccepted {
		t.Errorf("got %s/%s, want accepted/paid", got.Status, got.PaymentStatus)
	}

	keys := f.publisher.Keys()
	if last := keys[len(keys)-1]; last != events.BookingPaymentUpdated {
		t.Errorf("last event = %s, want %s", last, events.BookingPaymentUpdated)
	}
}

func TestUpdatePaymentStatus_LosesRaceToRejection(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.UpdateBookingStatus(ctx, claimsFor(f.owner), b.ID.Hex(), "accepted"); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}

	f.store.BeforeBookingUpdate = func(id primitive.ObjectID) {
		f.store.BeforeBookingUpdate = nil
		stored, _ := f.store.Booking(id)
		stored.Status = models.BookingRejected
		f.store.PutBooking(stored)
	}

	_, err := f.svc.UpdatePaymentStatus(ctx, claimsFor(f.studentA), b.ID.Hex(), "paid")
	assertKind(t, err, services.KindBadRequest)

	stored, _ := f.store.Booking(b.ID)
	if stored.PaymentStatus != models.PaymentUnpaid {
		t.Errorf("payment recorded on a rejected booking")
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newBookingFixture(t)
	f.publisher.Err = errors.New("broker down")

	b := f.create(t)
	if b.Status != models.BookingPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
}

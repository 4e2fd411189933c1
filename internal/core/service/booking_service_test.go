package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// stubTourRepo embeds the interface so only the methods the booking flow
// touches need real implementations.
type stubTourRepo struct {
	ports.TourRepository
	tours map[string]*domain.Tour
}

func (r *stubTourRepo) FindByID(_ context.Context, id string) (*domain.Tour, error) {
	if tour, ok := r.tours[id]; ok {
		return tour, nil
	}
	return nil, domain.ErrDocumentNotFound
}

type stubBookingRepo struct {
	ports.BookingRepository
	bookings  []domain.Booking
	sessions  map[string]bool
	insertErr error
}

func (r *stubBookingRepo) InsertUnique(_ context.Context, b *domain.Booking) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}
	if r.sessions == nil {
		r.sessions = map[string]bool{}
	}
	if r.sessions[b.SessionID] {
		return false, nil
	}
	r.sessions[b.SessionID] = true
	b.ID = primitive.NewObjectID()
	r.bookings = append(r.bookings, *b)
	return true, nil
}

type stubGateway struct {
	session  *ports.CheckoutSession
	event    *ports.CheckoutEvent
	eventErr error

	lastInput ports.CheckoutSessionInput
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, in ports.CheckoutSessionInput) (*ports.CheckoutSession, error) {
	g.lastInput = in
	if g.session == nil {
		return nil, errors.New("gateway down")
	}
	return g.session, nil
}

func (g *stubGateway) ConstructEvent([]byte, string) (*ports.CheckoutEvent, error) {
	return g.event, g.eventErr
}

type stubDedup struct {
	seen   map[string]bool
	marked []string
	err    error
}

func (d *stubDedup) Seen(_ context.Context, sessionID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.seen[sessionID], nil
}

func (d *stubDedup) Mark(_ context.Context, sessionID string) error {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[sessionID] = true
	d.marked = append(d.marked, sessionID)
	return nil
}

func testTour() *domain.Tour {
	return &domain.Tour{
		ID:      primitive.NewObjectID(),
		Name:    "The Forest Hiker",
		Slug:    "the-forest-hiker",
		Summary: "Breathtaking hike",
		Price:   49700,
	}
}

func completedEvent(tour *domain.Tour, email, sessionID string) *ports.CheckoutEvent {
	return &ports.CheckoutEvent{
		ID:   "evt_1",
		Type: ports.EventCheckoutCompleted,
		Session: ports.CheckoutSession{
			ID:                sessionID,
			ClientReferenceID: tour.ID.Hex(),
			CustomerEmail:     email,
			AmountTotal:       49700,
			Currency:          "usd",
			PaymentStatus:     "paid",
		},
	}
}

func TestGetCheckoutSession_ServerSidePrice(t *testing.T) {
	tour := testTour()
	user := seededUser(t, "alice@example.com", "pw")
	gateway := &stubGateway{session: &ports.CheckoutSession{ID: "cs_1", URL: "https://pay/cs_1"}}

	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{tour.ID.Hex(): tour}},
		newStubUserRepo(user),
		&stubBookingRepo{},
		gateway,
		&stubDedup{},
		zerolog.Nop(),
	)

	session, err := svc.GetCheckoutSession(context.Background(), tour.ID.Hex(), user, "https://summitrails.io/")
	if err != nil {
		t.Fatalf("checkout session: %v", err)
	}
	if session.ID != "cs_1" {
		t.Fatalf("session id = %q", session.ID)
	}
	in := gateway.lastInput
	if in.AmountCents != tour.Price {
		t.Fatalf("amount = %d, want the catalog price %d", in.AmountCents, tour.Price)
	}
	if in.CustomerEmail != user.Email {
		t.Fatalf("customer email = %q", in.CustomerEmail)
	}
	if in.TourID != tour.ID.Hex() {
		t.Fatalf("client reference = %q", in.TourID)
	}
	if in.SuccessURL != "https://summitrails.io/my-bookings?alert=booking" {
		t.Fatalf("success url = %q", in.SuccessURL)
	}
	if in.CancelURL != "https://summitrails.io/tours/the-forest-hiker" {
		t.Fatalf("cancel url = %q", in.CancelURL)
	}
}

func TestGetCheckoutSession_UnknownTour(t *testing.T) {
	user := seededUser(t, "alice@example.com", "pw")
	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{}},
		newStubUserRepo(user),
		&stubBookingRepo{},
		&stubGateway{},
		&stubDedup{},
		zerolog.Nop(),
	)

	_, err := svc.GetCheckoutSession(context.Background(), primitive.NewObjectID().Hex(), user, "https://x")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestHandleWebhook_CreatesBookingOnce(t *testing.T) {
	tour := testTour()
	user := seededUser(t, "alice@example.com", "pw")
	bookings := &stubBookingRepo{}
	dedup := &stubDedup{}
	gateway := &stubGateway{event: completedEvent(tour, user.Email, "cs_once")}

	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{tour.ID.Hex(): tour}},
		newStubUserRepo(user),
		bookings,
		gateway,
		dedup,
		zerolog.Nop(),
	)

	// The provider redelivers; every delivery must be acknowledged, only the
	// first may book.
	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if len(bookings.bookings) != 1 {
		t.Fatalf("bookings = %d, want exactly 1", len(bookings.bookings))
	}
	b := bookings.bookings[0]
	if b.TourID != tour.ID || b.UserID != user.ID {
		t.Fatalf("booking references wrong documents: %+v", b)
	}
	if b.Price != 49700 || !b.Paid {
		t.Fatalf("booking price/paid = %d/%v", b.Price, b.Paid)
	}
	if len(dedup.marked) == 0 || dedup.marked[0] != "cs_once" {
		t.Fatalf("session not marked processed: %v", dedup.marked)
	}
}

func TestHandleWebhook_DedupOutageFallsBackToUniqueInsert(t *testing.T) {
	tour := testTour()
	user := seededUser(t, "alice@example.com", "pw")
	bookings := &stubBookingRepo{}
	gateway := &stubGateway{event: completedEvent(tour, user.Email, "cs_outage")}

	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{tour.ID.Hex(): tour}},
		newStubUserRepo(user),
		bookings,
		gateway,
		&stubDedup{err: errors.New("redis down")},
		zerolog.Nop(),
	)

	for i := 0; i < 2; i++ {
		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if len(bookings.bookings) != 1 {
		t.Fatalf("bookings = %d, unique insert must hold without dedup", len(bookings.bookings))
	}
}

func TestHandleWebhook_IgnoresOtherEventTypes(t *testing.T) {
	bookings := &stubBookingRepo{}
	gateway := &stubGateway{event: &ports.CheckoutEvent{ID: "evt_2", Type: "invoice.paid"}}

	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{}},
		newStubUserRepo(),
		bookings,
		gateway,
		&stubDedup{},
		zerolog.Nop(),
	)

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unrelated events must be acknowledged: %v", err)
	}
	if len(bookings.bookings) != 0 {
		t.Fatal("no booking expected for unrelated event")
	}
}

func TestHandleWebhook_SignatureFailurePropagates(t *testing.T) {
	gateway := &stubGateway{eventErr: domain.ErrSignatureInvalid}
	svc := NewBookingService(
		&stubTourRepo{},
		newStubUserRepo(),
		&stubBookingRepo{},
		gateway,
		&stubDedup{},
		zerolog.Nop(),
	)

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestHandleWebhook_UnknownCustomerDropped(t *testing.T) {
	tour := testTour()
	bookings := &stubBookingRepo{}
	gateway := &stubGateway{event: completedEvent(tour, "ghost@example.com", "cs_ghost")}

	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{tour.ID.Hex(): tour}},
		newStubUserRepo(),
		bookings,
		gateway,
		&stubDedup{},
		zerolog.Nop(),
	)

	// Redelivering cannot make an unknown customer appear, so the delivery
	// is acknowledged and dropped instead of bounced back for retry.
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unreconcilable delivery must be acknowledged: %v", err)
	}
	if len(bookings.bookings) != 0 {
		t.Fatal("no booking expected for an unknown customer")
	}
}

func TestHandleWebhook_StoreFailureSurfaces(t *testing.T) {
	tour := testTour()
	user := seededUser(t, "alice@example.com", "pw")
	insertErr := errors.New("primary stepped down")
	bookings := &stubBookingRepo{insertErr: insertErr}
	gateway := &stubGateway{event: completedEvent(tour, user.Email, "cs_flaky")}

	svc := NewBookingService(
		&stubTourRepo{tours: map[string]*domain.Tour{tour.ID.Hex(): tour}},
		newStubUserRepo(user),
		bookings,
		gateway,
		&stubDedup{},
		zerolog.Nop(),
	)

	// A transient store failure must bounce the delivery so the provider
	// redelivers it.
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); !errors.Is(err, insertErr) {
		t.Fatalf("err = %v, want the insert failure", err)
	}

	// The retry lands once the store recovers.
	bookings.insertErr = nil
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("redelivery after recovery: %v", err)
	}
	if len(bookings.bookings) != 1 {
		t.Fatalf("bookings = %d, want 1 after recovery", len(bookings.bookings))
	}
}

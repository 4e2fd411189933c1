package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/summitrails/tour-booking-api/internal/api/metrics"
	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// Dedup is the advisory fast-path marker for already-processed checkout
// sessions. The unique index on the booking's session id remains the
// authority; a dedup outage only costs an extra insert attempt.
type Dedup interface {
	Seen(ctx context.Context, sessionID string) (bool, error)
	Mark(ctx context.Context, sessionID string) error
}

// BookingService creates provider checkout sessions and reconciles the
// provider's webhook deliveries into bookings.
type BookingService struct {
	tours    ports.TourRepository
	users    ports.UserRepository
	bookings ports.BookingRepository
	gateway  ports.PaymentGateway
	dedup    Dedup
	log      zerolog.Logger
}

func NewBookingService(
	tours ports.TourRepository,
	users ports.UserRepository,
	bookings ports.BookingRepository,
	gateway ports.PaymentGateway,
	dedup Dedup,
	log zerolog.Logger,
) *BookingService {
	return &BookingService{
		tours:    tours,
		users:    users,
		bookings: bookings,
		gateway:  gateway,
		dedup:    dedup,
		log:      log,
	}
}

// GetCheckoutSession prices the tour server-side and opens a provider
// session bound to the authenticated user's email. The tour id rides along
// as the session's client reference so the webhook can resolve it back.
func (s *BookingService) GetCheckoutSession(ctx context.Context, tourID string, user *domain.User, origin string) (*ports.CheckoutSession, error) {
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return nil, err
	}

	origin = strings.TrimRight(origin, "/")
	in := ports.CheckoutSessionInput{
		TourID:        tour.ID.Hex(),
		TourName:      fmt.Sprintf("%s Tour", tour.Name),
		TourSummary:   tour.Summary,
		ImageURL:      tour.ImageCover,
		AmountCents:   tour.Price,
		Currency:      "usd",
		CustomerEmail: user.Email,
		SuccessURL:    origin + "/my-bookings?alert=booking",
		CancelURL:     origin + "/tours/" + tour.Slug,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, in)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	s.log.Info().
		Str("tour_id", tour.ID.Hex()).
		Str("session_id", session.ID).
		Int64("amount_cents", session.AmountTotal).
		Msg("checkout session created")
	return session, nil
}

// HandleWebhook verifies one provider delivery and, for a completed
// checkout, records the booking exactly once. Deliveries that can never
// reconcile (unknown tour or customer) are dropped after logging, so the
// provider stops redelivering them. Transient store failures are returned
// as errors instead; the provider's retry replays the delivery and the
// unique session index keeps the replay idempotent.
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.gateway.ConstructEvent(payload, sigHeader)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		return err
	}

	if event.Type != ports.EventCheckoutCompleted {
		metrics.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		s.log.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("webhook event ignored")
		return nil
	}

	session := event.Session
	if seen, err := s.dedup.Seen(ctx, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("dedup check unavailable, relying on unique index")
	} else if seen {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		s.log.Info().Str("session_id", session.ID).Msg("checkout session already processed")
		return nil
	}

	booking, err := s.buildBooking(ctx, &session)
	if err != nil {
		if errors.Is(err, domain.ErrTourNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			metrics.WebhookEventsTotal.WithLabelValues("dropped").Inc()
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("checkout session cannot be reconciled, dropping delivery")
			return nil
		}
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("webhook reconciliation failed")
		return err
	}

	created, err := s.bookings.InsertUnique(ctx, booking)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("booking insert failed")
		return err
	}
	if !created {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		s.log.Info().Str("session_id", session.ID).Msg("booking already recorded for session")
	} else {
		metrics.WebhookEventsTotal.WithLabelValues("booked").Inc()
		metrics.BookingsCreatedTotal.Inc()
		s.log.Info().
			Str("session_id", session.ID).
			Str("tour_id", booking.TourID.Hex()).
			Str("user_id", booking.UserID.Hex()).
			Int64("price_cents", booking.Price).
			Msg("booking created from checkout")
	}

	if err := s.dedup.Mark(ctx, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("dedup mark failed")
	}
	return nil
}

// buildBooking resolves the session back to a tour and user. The price is
// the provider-signed amount total, already in minor units.
func (s *BookingService) buildBooking(ctx context.Context, session *ports.CheckoutSession) (*domain.Booking, error) {
	tour, err := s.tours.FindByID(ctx, session.ClientReferenceID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, fmt.Errorf("checkout session %s: %w", session.ID, domain.ErrTourNotFound)
		}
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, session.CustomerEmail)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s: %w", session.ID, err)
	}

	return &domain.Booking{
		TourID:    tour.ID,
		UserID:    user.ID,
		Price:     session.AmountTotal,
		Paid:      true,
		SessionID: session.ID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

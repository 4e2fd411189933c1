package ports

import (
	"context"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// CheckoutSessionInput is the session request sent to the payment provider.
// AmountCents is the server-computed price in minor currency units; the
// client never supplies it.
type CheckoutSessionInput struct {
	TourID        string
	TourName      string
	TourSummary   string
	ImageURL      string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's session descriptor.
type CheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	PaymentStatus     string `json:"payment_status"`
}

// CheckoutEvent is a signature-verified provider webhook event.
type CheckoutEvent struct {
	ID      string
	Type    string
	Session CheckoutSession
}

// EventCheckoutCompleted is the only event type the reconciliation flow acts
// on; all other verified events are acknowledged and dropped.
const EventCheckoutCompleted = "checkout.session.completed"

// PaymentGateway is the payment-provider client.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
	// ConstructEvent verifies the provider signature against the exact raw
	// payload bytes and returns the decoded event, or ErrSignatureInvalid.
	ConstructEvent(payload []byte, sigHeader string) (*CheckoutEvent, error)
}

// BookingService implements the paid-reservation flows.
type BookingService interface {
	// GetCheckoutSession builds a provider session for the tour, priced
	// server-side, bound to the authenticated user's email.
	GetCheckoutSession(ctx context.Context, tourID string, user *domain.User, origin string) (*CheckoutSession, error)
	// HandleWebhook verifies and processes one provider delivery. It returns
	// ErrSignatureInvalid when the payload cannot be authenticated; any
	// verified delivery is processed at-most-once per checkout session.
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

type stubBookingService struct {
	session *ports.CheckoutSession
	err     error

	payload   []byte
	sigHeader string
}

func (s *stubBookingService) GetCheckoutSession(_ context.Context, tourID string, user *domain.User, origin string) (*ports.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func (s *stubBookingService) HandleWebhook(_ context.Context, payload []byte, sigHeader string) error {
	s.payload = payload
	s.sigHeader = sigHeader
	return s.err
}

func newBookingHandler(svc ports.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func TestWebhook_InvalidSignatureSurfaces(t *testing.T) {
	svc := &stubBookingService{err: domain.ErrSignatureInvalid}
	h := newBookingHandler(svc)

	c, _ := newTestContext(t, http.MethodPost, "/webhook-checkout", `{"id":"evt_1"}`)
	c.Request().Header.Set(signatureHeader, "t=1,v1=bad")

	if err := h.Webhook(c); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestWebhook_RawBodyAndHeaderForwarded(t *testing.T) {
	svc := &stubBookingService{}
	h := newBookingHandler(svc)

	body := `{"id":"evt_1","type":"checkout.session.completed"}`
	c, rec := newTestContext(t, http.MethodPost, "/webhook-checkout", body)
	c.Request().Header.Set(signatureHeader, "t=1,v1=abc")

	if err := h.Webhook(c); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if string(svc.payload) != body {
		t.Fatalf("payload altered: %q", svc.payload)
	}
	if svc.sigHeader != "t=1,v1=abc" {
		t.Fatalf("signature header = %q", svc.sigHeader)
	}

	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["received"] {
		t.Fatalf("response = %v", resp)
	}
}

func TestWebhook_ProcessingErrorBouncesDelivery(t *testing.T) {
	// A verified delivery that fails downstream is not acknowledged; the
	// error reaches the error handler as a 5xx so the provider redelivers.
	procErr := errors.New("mongo down")
	svc := &stubBookingService{err: procErr}
	h := newBookingHandler(svc)

	c, _ := newTestContext(t, http.MethodPost, "/webhook-checkout", `{}`)
	if err := h.Webhook(c); !errors.Is(err, procErr) {
		t.Fatalf("err = %v, want the processing failure", err)
	}
}

func TestGetCheckoutSession_RequiresUser(t *testing.T) {
	h := newBookingHandler(&stubBookingService{})

	c, _ := newTestContext(t, http.MethodGet, "/api/v1/bookings/checkout-session/x", "")
	if err := h.GetCheckoutSession(c); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestGetCheckoutSession_ReturnsSession(t *testing.T) {
	session := &ports.CheckoutSession{ID: "cs_1", URL: "https://pay/cs_1"}
	h := newBookingHandler(&stubBookingService{session: session})

	c, rec := newTestContext(t, http.MethodGet, "/api/v1/bookings/checkout-session/x", "")
	c.Set("user", &domain.User{ID: primitive.NewObjectID(), Email: "alice@example.com"})
	c.SetParamNames("tourId")
	c.SetParamValues(primitive.NewObjectID().Hex())

	if err := h.GetCheckoutSession(c); err != nil {
		t.Fatalf("checkout session: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status  string                 `json:"status"`
		Session *ports.CheckoutSession `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Session == nil || resp.Session.ID != "cs_1" {
		t.Fatalf("response = %+v", resp)
	}
}

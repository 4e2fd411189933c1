package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// signatureHeader is the provider's webhook signature header.
const signatureHeader = "Stripe-Signature"

// BookingHandler serves checkout-session creation, the provider webhook,
// and the admin booking CRUD.
type BookingHandler struct {
	*Resource[domain.Booking]
	svc   ports.BookingService
	tours ports.TourRepository
	users ports.UserRepository
}

func NewBookingHandler(bookings ports.BookingRepository, svc ports.BookingService, tours ports.TourRepository, users ports.UserRepository) *BookingHandler {
	h := &BookingHandler{
		Resource: NewResource[domain.Booking](bookings),
		svc:      svc,
		tours:    tours,
		users:    users,
	}
	h.Resource.ExpandOne = h.expand
	h.Resource.AllowedPatch = []string{"price", "paid"}
	return h
}

// GetCheckoutSession opens a provider checkout session for the tour on
// behalf of the logged-in user.
func (h *BookingHandler) GetCheckoutSession(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	origin := requestScheme(c) + "://" + c.Request().Host
	session, err := h.svc.GetCheckoutSession(c.Request().Context(), c.Param("tourId"), user, origin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"session": session,
	})
}

// Webhook receives the provider's event deliveries. The raw body bytes feed
// signature verification, so this handler never binds the payload. A
// non-nil service error means the delivery was not processed, and the
// resulting 4xx/5xx tells the provider to redeliver.
func (h *BookingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable payload")
	}

	if err := h.svc.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get(signatureHeader)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// MyBookings lists the logged-in user's own bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	scope := map[string]any{"user": user.ID}
	bookings, err := h.store.FindAll(c.Request().Context(), scope, c.QueryParams())
	if err != nil {
		return err
	}
	return respondList(c, bookings, len(bookings))
}

func (h *BookingHandler) expand(c echo.Context, booking *domain.Booking) error {
	ctx := c.Request().Context()
	if tour, err := h.tours.FindByID(ctx, booking.TourID.Hex()); err == nil {
		booking.Tour = tour
	}
	if user, err := h.users.FindByID(ctx, booking.UserID.Hex()); err == nil {
		booking.User = user
	}
	return nil
}

package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/api/middleware"
	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// currentUser extracts the user injected by the Protect middleware. Routes
// that reach a handler calling this are always behind Protect; a missing
// user means the route table is miswired, and the not-logged-in error keeps
// that failure closed.
func currentUser(c echo.Context) (*domain.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return user, nil
}

package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// UserHandler serves the admin-only user management endpoints. Account
// creation stays on the signup flow so password handling has exactly one
// path.
type UserHandler struct {
	*Resource[domain.User]
}

func NewUserHandler(users ports.Store[domain.User]) *UserHandler {
	h := &UserHandler{Resource: NewResource[domain.User](users)}
	// Password and reset fields are reachable only through the auth flows.
	h.Resource.AllowedPatch = []string{"name", "email", "photo", "role", "active"}
	h.Resource.UpdateFn = h.update
	return h
}

// Create is intentionally not routed through the generic resource.
func (h *UserHandler) Create(c echo.Context) error {
	return echo.NewHTTPError(http.StatusBadRequest, "this route is not defined, please use /signup instead")
}

func (h *UserHandler) update(ctx context.Context, id string, patch map[string]any) (*domain.User, error) {
	if role, ok := patch["role"].(string); ok && !domain.ValidRole(role) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "role must be one of: user, guide, lead-guide, admin")
	}
	return h.store.UpdateByID(ctx, id, patch)
}

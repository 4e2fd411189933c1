package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
	"github.com/summitrails/tour-booking-api/internal/core/service"
)

// ReviewHandler serves the review CRUD, both top-level and nested under a
// tour. All writes route through the review service so the owning tour's
// rating aggregate stays in step.
type ReviewHandler struct {
	*Resource[domain.Review]
	svc   *service.ReviewService
	users ports.UserRepository
}

func NewReviewHandler(reviews ports.ReviewRepository, svc *service.ReviewService, users ports.UserRepository) *ReviewHandler {
	h := &ReviewHandler{
		Resource: NewResource[domain.Review](reviews),
		svc:      svc,
		users:    users,
	}
	h.Resource.Scope = tourScope
	h.Resource.PrepareCreate = h.prepareCreate
	h.Resource.ExpandOne = h.expand
	// The tour and author references are fixed at creation.
	h.Resource.AllowedPatch = []string{"review", "rating"}
	h.Resource.CreateFn = svc.Create
	h.Resource.UpdateFn = h.update
	h.Resource.DeleteFn = svc.Delete
	return h
}

func (h *ReviewHandler) update(ctx context.Context, id string, patch map[string]any) (*domain.Review, error) {
	if raw, ok := patch["rating"]; ok {
		rating, valid := toFloat(raw)
		if !valid || rating < 1 || rating > 5 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1.0 and 5.0")
		}
	}
	return h.svc.Update(ctx, id, patch)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// tourScope pins the parent tour on the nested route; the top-level route
// has no :tourId and lists everything.
func tourScope(c echo.Context) map[string]any {
	tourID := c.Param("tourId")
	if tourID == "" {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(tourID)
	if err != nil {
		// An unparseable id matches nothing rather than everything.
		return map[string]any{"tour": tourID}
	}
	return map[string]any{"tour": oid}
}

// prepareCreate defaults the tour from the nested route and the author from
// the session; a client-supplied author is always overridden.
func (h *ReviewHandler) prepareCreate(c echo.Context, review *domain.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1.0 and 5.0")
	}
	if review.Review == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "review can not be empty")
	}

	if tourID := c.Param("tourId"); tourID != "" {
		oid, err := primitive.ObjectIDFromHex(tourID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ID format")
		}
		review.TourID = oid
	}
	if review.TourID.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "review must reference a tour")
	}

	user, err := currentUser(c)
	if err != nil {
		return err
	}
	review.UserID = user.ID
	review.User = nil
	return nil
}

func (h *ReviewHandler) expand(c echo.Context, review *domain.Review) error {
	author, err := h.users.FindByID(c.Request().Context(), review.UserID.Hex())
	if err != nil {
		// Deactivated authors leave the review anonymous.
		return nil
	}
	review.User = author
	return nil
}

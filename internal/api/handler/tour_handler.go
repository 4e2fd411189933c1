package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// Earth radii used to convert a surface distance into radians for the
// sphere queries.
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1

	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

// TourHandler combines the generic CRUD resource with the tour-specific
// aggregation and geospatial endpoints.
type TourHandler struct {
	*Resource[domain.Tour]
	tours   ports.TourRepository
	users   ports.UserRepository
	reviews ports.ReviewRepository
}

func NewTourHandler(tours ports.TourRepository, users ports.UserRepository, reviews ports.ReviewRepository) *TourHandler {
	h := &TourHandler{
		Resource: NewResource[domain.Tour](tours),
		tours:    tours,
		users:    users,
		reviews:  reviews,
	}
	h.Resource.PrepareCreate = h.prepareCreate
	h.Resource.ExpandOne = h.expand
	// Derived rating fields and the slug are server-owned.
	h.Resource.AllowedPatch = []string{
		"name", "duration", "max_group_size", "difficulty", "price",
		"price_discount", "summary", "description", "image_cover", "images",
		"start_dates", "secret_tour", "start_location", "locations", "guides",
	}
	h.Resource.UpdateFn = h.update
	return h
}

func (h *TourHandler) prepareCreate(c echo.Context, tour *domain.Tour) error {
	if err := tour.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tour.Slug = domain.Slugify(tour.Name)
	tour.RatingsAverage = domain.DefaultRatingsAverage
	tour.RatingsQuantity = 0
	tour.CreatedAt = time.Now().UTC()
	return nil
}

// update re-runs the cross-field checks against the would-be document
// before anything is written, and keeps the slug in step with a renamed
// tour.
func (h *TourHandler) update(ctx context.Context, id string, patch map[string]any) (*domain.Tour, error) {
	current, err := h.tours.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if name, ok := patch["name"].(string); ok {
		next.Name = name
		patch["slug"] = domain.Slugify(name)
	}
	if difficulty, ok := patch["difficulty"].(string); ok {
		next.Difficulty = difficulty
	}
	if price, ok := patch["price"].(int64); ok {
		next.Price = price
	}
	if discount, ok := patch["price_discount"].(int64); ok {
		next.PriceDiscount = discount
	}
	if err := next.Validate(); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return h.tours.UpdateByID(ctx, id, patch)
}

// expand loads the guide profiles and review list for a single tour.
func (h *TourHandler) expand(c echo.Context, tour *domain.Tour) error {
	ctx := c.Request().Context()
	for _, guideID := range tour.GuideIDs {
		guide, err := h.users.FindByID(ctx, guideID.Hex())
		if err != nil {
			// A deactivated guide should not break the tour page.
			continue
		}
		tour.Guides = append(tour.Guides, *guide)
	}

	reviews, err := h.reviews.FindByTour(ctx, tour.ID.Hex())
	if err != nil {
		return err
	}
	tour.Reviews = reviews
	return nil
}

// AliasTopTours presets the query string for the top-5-cheap listing before
// the generic GetAll runs.
func (h *TourHandler) AliasTopTours(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.Request().URL.Query()
		q.Set("limit", "5")
		q.Set("sort", "-ratings_average,price")
		q.Set("fields", "name,price,ratings_average,summary,difficulty")
		c.Request().URL.RawQuery = q.Encode()
		return next(c)
	}
}

// GetTourStats serves the per-difficulty aggregate over well-rated tours.
func (h *TourHandler) GetTourStats(c echo.Context) error {
	stats, err := h.tours.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Status: "success", Data: map[string]any{"stats": stats}})
}

// GetMonthlyPlan serves the per-month start-date breakdown for one year.
func (h *TourHandler) GetMonthlyPlan(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "year must be a number")
	}
	plan, err := h.tours.MonthlyPlan(c.Request().Context(), year)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Status: "success", Data: map[string]any{"plan": plan}})
}

// GetToursWithin lists tours whose start location falls inside the circle
// centred on latlng with the given surface radius.
// Route: /tours-within/:distance/center/:latlng/unit/:unit
func (h *TourHandler) GetToursWithin(c echo.Context) error {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || distance < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "distance must be a non-negative number")
	}
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		return err
	}

	radius := distance / earthRadiusKm
	if c.Param("unit") == "mi" {
		radius = distance / earthRadiusMiles
	}

	tours, err := h.tours.Within(c.Request().Context(), lat, lng, radius)
	if err != nil {
		return err
	}
	return respondList(c, tours, len(tours))
}

// GetDistances lists every tour with its distance from the given point.
// Route: /distances/:latlng/unit/:unit
func (h *TourHandler) GetDistances(c echo.Context) error {
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		return err
	}

	multiplier := metersToKm
	if c.Param("unit") == "mi" {
		multiplier = metersToMiles
	}

	distances, err := h.tours.Distances(c.Request().Context(), lat, lng, multiplier)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Status: "success", Data: map[string]any{"distances": distances}})
}

func parseLatLng(param string) (lat, lng float64, err error) {
	parts := strings.SplitN(param, ",", 2)
	if len(parts) != 2 {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest,
			"please provide latitude and longitude in the format lat,lng")
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest,
			"please provide latitude and longitude in the format lat,lng")
	}
	return lat, lng, nil
}

package ports

import (
	"context"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// TourStats is one difficulty bucket of the catalog statistics aggregation.
type TourStats struct {
	Difficulty string  `bson:"_id"`
	NumTours   int64   `bson:"num_tours"`
	NumRatings int64   `bson:"num_ratings"`
	AvgRating  float64 `bson:"avg_rating"`
	AvgPrice   float64 `bson:"avg_price"`
	MinPrice   int64   `bson:"min_price"`
	MaxPrice   int64   `bson:"max_price"`
}

// MonthlyPlanEntry counts tour starts for one month of a year.
type MonthlyPlanEntry struct {
	Month    int      `bson:"_id"`
	NumTours int64    `bson:"num_tour_starts"`
	Tours    []string `bson:"tours"`
}

// TourDistance pairs a tour with its distance from a reference point.
type TourDistance struct {
	ID       string  `bson:"_id"`
	Name     string  `bson:"name"`
	Distance float64 `bson:"distance"`
}

// TourRepository adds the aggregation queries the tour endpoints need on top
// of the generic store operations.
type TourRepository interface {
	Store[domain.Tour]
	Stats(ctx context.Context) ([]TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error)
	// Within returns tours whose start location lies inside a sphere of the
	// given radius (radians) around the point.
	Within(ctx context.Context, lat, lng, radiusRadians float64) ([]domain.Tour, error)
	// Distances returns the distance of every tour's start location from the
	// point, scaled by multiplier (metres → km or miles).
	Distances(ctx context.Context, lat, lng, multiplier float64) ([]TourDistance, error)
}

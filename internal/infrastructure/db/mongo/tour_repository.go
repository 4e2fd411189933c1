package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

const toursCollection = "tours"

// TourRepository persists the tour catalog. Secret tours are excluded from
// every read through the store; the aggregations below operate on the raw
// collection.
type TourRepository struct {
	*Store[domain.Tour]
}

func NewTourRepository(db *mongo.Database) *TourRepository {
	coll := db.Collection(toursCollection)
	return &TourRepository{
		Store: NewStore[domain.Tour](coll, bson.M{"secret_tour": bson.M{"$ne": true}}),
	}
}

// Stats groups the catalog by difficulty for tours rated 4.5 or better.
func (r *TourRepository) Stats(ctx context.Context) ([]ports.TourStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratings_average": bson.M{"$gte": 4.5}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         bson.M{"$toUpper": "$difficulty"},
			"num_tours":   bson.M{"$sum": 1},
			"num_ratings": bson.M{"$sum": "$ratings_quantity"},
			"avg_rating":  bson.M{"$avg": "$ratings_average"},
			"avg_price":   bson.M{"$avg": "$price"},
			"min_price":   bson.M{"$min": "$price"},
			"max_price":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avg_price": 1}}},
	}
	return aggregate[ports.TourStats](ctx, r.Collection(), pipeline)
}

// MonthlyPlan counts tour starts per month of the given year.
func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]ports.MonthlyPlanEntry, error) {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)

	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$start_dates"}},
		{{Key: "$match", Value: bson.M{"start_dates": bson.M{"$gte": from, "$lte": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":             bson.M{"$month": "$start_dates"},
			"num_tour_starts": bson.M{"$sum": 1},
			"tours":           bson.M{"$push": "$name"},
		}}},
		{{Key: "$sort", Value: bson.M{"num_tour_starts": -1}}},
	}
	return aggregate[ports.MonthlyPlanEntry](ctx, r.Collection(), pipeline)
}

// Within returns non-secret tours whose start location lies inside the
// sphere of radiusRadians around (lat, lng).
func (r *TourRepository) Within(ctx context.Context, lat, lng, radiusRadians float64) ([]domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"secret_tour": bson.M{"$ne": true},
		"start_location": bson.M{
			"$geoWithin": bson.M{"$centerSphere": bson.A{bson.A{lng, lat}, radiusRadians}},
		},
	}
	cur, err := r.Collection().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("tours within: %w", err)
	}
	tours := []domain.Tour{}
	if err := cur.All(ctx, &tours); err != nil {
		return nil, fmt.Errorf("tours within: %w", err)
	}
	return tours, nil
}

// Distances computes the distance from (lat, lng) to every tour's start
// location. $geoNear must be the first stage and uses the 2dsphere index.
func (r *TourRepository) Distances(ctx context.Context, lat, lng, multiplier float64) ([]ports.TourDistance, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":               bson.M{"type": "Point", "coordinates": bson.A{lng, lat}},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}
	return aggregate[ports.TourDistance](ctx, r.Collection(), pipeline)
}

// aggregate is a free function because Go methods cannot introduce type
// parameters.
func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll.Name(), err)
	}
	return out, nil
}

// EnsureIndexes creates the query and geospatial indexes for the catalog.
func (r *TourRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratings_average", Value: -1}}},
		{Keys: bson.D{{Key: "start_location", Value: "2dsphere"}}},
	}
	_, err := r.Collection().Indexes().CreateMany(ctx, indexes)
	return err
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

const reviewsCollection = "reviews"

// ReviewRepository persists reviews and owns the rating aggregation that
// keeps each tour's {ratings_quantity, ratings_average} equal to the
// aggregate over its review set.
type ReviewRepository struct {
	*Store[domain.Review]
	tours *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{
		Store: NewStore[domain.Review](db.Collection(reviewsCollection), nil),
		tours: db.Collection(toursCollection),
	}
}

func (r *ReviewRepository) FindByTour(ctx context.Context, tourID string) ([]domain.Review, error) {
	oid, err := primitive.ObjectIDFromHex(tourID)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", tourID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.Collection().Find(ctx, bson.M{"tour": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	reviews := []domain.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, nil
}

// SyncTourRatings recomputes the tour's rating aggregate from its current
// review set. Call it after the review write is durable; with zero reviews
// left the tour resets to the neutral defaults.
func (r *ReviewRepository) SyncTourRatings(ctx context.Context, tourID string) error {
	oid, err := primitive.ObjectIDFromHex(tourID)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", tourID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": oid}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$tour",
			"n_rating":   bson.M{"$sum": 1},
			"avg_rating": bson.M{"$avg": "$rating"},
		}}},
	}
	stats, err := aggregate[domain.RatingStats](ctx, r.Collection(), pipeline)
	if err != nil {
		return fmt.Errorf("rating stats: %w", err)
	}

	quantity := int64(0)
	average := domain.DefaultRatingsAverage
	if len(stats) > 0 {
		quantity = stats[0].Quantity
		average = roundToTenth(stats[0].Average)
	}

	_, err = r.tours.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"ratings_quantity": quantity,
		"ratings_average":  average,
	}})
	if err != nil {
		return fmt.Errorf("sync tour ratings: %w", err)
	}
	return nil
}

func roundToTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// EnsureIndexes creates the unique (tour, user) index: one review per user
// per tour.
func (r *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.Collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

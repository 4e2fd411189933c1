package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is user-authored feedback on a tour. The (tour, user) pair is
// unique; every write to a review triggers a recompute of the owning tour's
// rating aggregate.
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Review    string             `json:"review" bson:"review"`
	Rating    float64            `json:"rating" bson:"rating"`
	TourID    primitive.ObjectID `json:"tour_id" bson:"tour"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`

	// Author, expanded explicitly on reads. Never persisted.
	User *User `json:"user,omitempty" bson:"-"`
}

// RatingStats is the aggregate a tour carries over its review set.
type RatingStats struct {
	Quantity int64   `bson:"n_rating"`
	Average  float64 `bson:"avg_rating"`
}

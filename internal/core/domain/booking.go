package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking records a paid reservation. Price is integer minor units (cents),
// taken from the provider-signed amount, never from client input. SessionID
// is the provider's checkout session identifier and carries a unique index:
// redelivered webhook events for the same session cannot create a second
// booking.
type Booking struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TourID    primitive.ObjectID `json:"tour_id" bson:"tour"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user"`
	Price     int64              `json:"price" bson:"price"`
	Paid      bool               `json:"paid" bson:"paid"`
	SessionID string             `json:"-" bson:"session_id,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`

	// Expanded relations, filled explicitly on reads. Never persisted.
	Tour *Tour `json:"tour,omitempty" bson:"-"`
	User *User `json:"user,omitempty" bson:"-"`
}

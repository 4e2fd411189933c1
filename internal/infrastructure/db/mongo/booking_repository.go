package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

const bookingsCollection = "bookings"

// BookingRepository persists bookings. The unique session_id index is the
// authoritative idempotency guard for webhook redelivery.
type BookingRepository struct {
	*Store[domain.Booking]
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		Store: NewStore[domain.Booking](db.Collection(bookingsCollection), nil),
	}
}

// InsertUnique inserts the booking keyed on its checkout session id. A
// duplicate-key conflict means the session was already reconciled; that is
// reported as created=false, not an error.
func (r *BookingRepository) InsertUnique(ctx context.Context, b *domain.Booking) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.Collection().InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert booking: %w", err)
	}
	return true, nil
}

// EnsureIndexes creates the unique session index plus the lookup indexes.
// The partial filter keeps manually created bookings (no session) out of the
// unique constraint.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"session_id": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "tour", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	}
	_, err := r.Collection().Indexes().CreateMany(ctx, indexes)
	return err
}

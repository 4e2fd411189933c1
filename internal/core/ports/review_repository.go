package ports

import (
	"context"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// ReviewRepository persists reviews and recomputes the owning tour's rating
// aggregate. SyncTourRatings must be called only after the triggering write
// is durable.
type ReviewRepository interface {
	Store[domain.Review]
	// FindByTour lists the reviews referencing a tour, newest first.
	FindByTour(ctx context.Context, tourID string) ([]domain.Review, error)
	// SyncTourRatings aggregates over all reviews of the tour and writes
	// {ratings_quantity, ratings_average} back to the tour document,
	// resetting to the defaults when no reviews remain.
	SyncTourRatings(ctx context.Context, tourID string) error
}

// BookingRepository persists bookings. InsertUnique enforces at-most-one
// booking per checkout session.
type BookingRepository interface {
	Store[domain.Booking]
	// InsertUnique inserts the booking keyed on its session id. It reports
	// created=false without error when the session was already processed.
	InsertUnique(ctx context.Context, b *domain.Booking) (created bool, err error)
}

package service

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/summitrails/tour-booking-api/internal/api/metrics"
	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// ReviewService wraps review persistence so every mutation is followed by a
// recompute of the owning tour's rating aggregate. The recompute runs only
// after the review write is durable; an aggregate failure is logged rather
// than surfaced, since the review itself is already committed.
type ReviewService struct {
	reviews ports.ReviewRepository
	log     zerolog.Logger
}

func NewReviewService(reviews ports.ReviewRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, log: log}
}

func (s *ReviewService) Create(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	review.CreatedAt = time.Now().UTC()
	created, err := s.reviews.Insert(ctx, review)
	if err != nil {
		return nil, err
	}
	metrics.ReviewWritesTotal.WithLabelValues("create").Inc()
	s.syncRatings(ctx, created.TourID.Hex())
	return created, nil
}

func (s *ReviewService) Update(ctx context.Context, id string, patch map[string]any) (*domain.Review, error) {
	updated, err := s.reviews.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	metrics.ReviewWritesTotal.WithLabelValues("update").Inc()
	s.syncRatings(ctx, updated.TourID.Hex())
	return updated, nil
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	// The tour reference is gone after the delete, so resolve it first.
	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reviews.DeleteByID(ctx, id); err != nil {
		return err
	}
	metrics.ReviewWritesTotal.WithLabelValues("delete").Inc()
	s.syncRatings(ctx, review.TourID.Hex())
	return nil
}

func (s *ReviewService) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return s.reviews.FindByID(ctx, id)
}

func (s *ReviewService) List(ctx context.Context, scope map[string]any, params url.Values) ([]domain.Review, error) {
	return s.reviews.FindAll(ctx, scope, params)
}

func (s *ReviewService) syncRatings(ctx context.Context, tourID string) {
	if err := s.reviews.SyncTourRatings(ctx, tourID); err != nil {
		s.log.Error().Err(err).Str("tour_id", tourID).Msg("tour rating recompute failed")
	}
}

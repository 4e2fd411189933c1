package ports

import (
	"context"
	"time"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// UserRepository defines persistence for user accounts beyond the generic
// store operations. All lookups exclude deactivated accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByEmail matches case-insensitively and includes the password hash.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByResetToken resolves a sha256 token digest whose expiry is still
	// in the future; ErrResetTokenInvalid otherwise.
	FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)
	SetResetToken(ctx context.Context, id string, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// UpdatePassword stores a new hash, clears any reset token, and records
	// the change time.
	UpdatePassword(ctx context.Context, id string, hash string, changedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, fields map[string]any) (*domain.User, error)
	Deactivate(ctx context.Context, id string) error
}

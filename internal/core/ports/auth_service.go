package ports

import (
	"context"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// SignUpInput carries the only fields a self-service signup may set. Role is
// always "user"; elevated roles are granted through the admin user endpoints.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService implements the token-issuing flows. Every method that returns
// a token has already verified the caller's credentials.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// ForgotPassword issues a single-use reset token, persists its hash with
	// a short expiry, and mails the raw token. A mail failure rolls the
	// token back and surfaces the error.
	ForgotPassword(ctx context.Context, email, resetURLBase string) error
	ResetPassword(ctx context.Context, token, password string) (*domain.User, string, error)
	// UpdatePassword requires re-verification of the current password.
	UpdatePassword(ctx context.Context, userID, current, password string) (*domain.User, string, error)
}

// Mailer delivers transactional mail out-of-band.
type Mailer interface {
	SendWelcome(ctx context.Context, user *domain.User, url string) error
	SendPasswordReset(ctx context.Context, user *domain.User, resetURL string) error
}

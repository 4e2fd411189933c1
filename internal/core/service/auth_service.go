package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

const (
	bcryptCost      = 12
	resetTokenTTL   = 10 * time.Minute
	resetTokenBytes = 32
)

// AuthService implements signup, login, and the password lifecycle.
type AuthService struct {
	users     ports.UserRepository
	mailer    ports.Mailer
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(users ports.UserRepository, mailer ports.Mailer, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 90 * 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
	}
}

// SignUp creates a new account with the "user" role. A welcome-mail failure
// is logged but does not fail the signup.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:     in.Name,
		Email:    strings.ToLower(in.Email),
		Role:     domain.RoleUser,
		Password: string(hash),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, "", err
	}

	if mailErr := s.mailer.SendWelcome(ctx, created, "/me"); mailErr != nil {
		s.log.Warn().Err(mailErr).Str("email", created.Email).Msg("welcome mail not delivered")
	}

	token, err := s.signToken(created.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	return created, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	if email == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		// Same response whether the account exists or not.
		return nil, "", domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.signToken(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ForgotPassword reports success even for unknown emails so the endpoint
// cannot be used to probe for accounts. A mail failure rolls the stored
// token back and surfaces the error.
func (s *AuthService) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.log.Info().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expires := s.now().UTC().Add(resetTokenTTL)

	if err := s.users.SetResetToken(ctx, user.ID.Hex(), hashToken(token), expires); err != nil {
		return err
	}

	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + token
	if err := s.mailer.SendPasswordReset(ctx, user, resetURL); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID.Hex()); clearErr != nil {
			s.log.Error().Err(clearErr).Str("user_id", user.ID.Hex()).Msg("reset token rollback failed")
		}
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*domain.User, string, error) {
	user, err := s.users.FindByResetToken(ctx, hashToken(token))
	if err != nil {
		return nil, "", err
	}
	return s.rotatePassword(ctx, user, password)
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, password string) (*domain.User, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	return s.rotatePassword(ctx, user, password)
}

// rotatePassword stores the new hash and issues a fresh token. The change
// time is backdated one second so the new token's iat never precedes it.
func (s *AuthService) rotatePassword(ctx context.Context, user *domain.User, password string) (*domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now().UTC().Add(-time.Second)
	if err := s.users.UpdatePassword(ctx, user.ID.Hex(), string(hash), changedAt); err != nil {
		return nil, "", err
	}
	user.Password = string(hash)
	user.PasswordChangedAt = changedAt
	user.PasswordResetToken = ""
	user.PasswordResetExpires = time.Time{}

	token, err := s.signToken(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) signToken(userID string) (string, error) {
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

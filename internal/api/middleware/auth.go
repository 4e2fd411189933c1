package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// UserContextKey is where Protect stores the authenticated *domain.User.
const UserContextKey = "user"

const jwtCookieName = "jwt"

// Protect rejects the request unless it carries a valid token for a still-
// active user whose password has not changed since the token was issued.
// The token is read from the Authorization bearer header, falling back to
// the "jwt" cookie set by the auth handlers.
func Protect(users ports.UserRepository, jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return domain.ErrNotLoggedIn
			}

			user, err := resolveUser(c, users, jwtSecret, token)
			if err != nil {
				return err
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// IsLoggedIn is the non-failing variant: it resolves the current user when a
// valid token is present and stays silent otherwise. Routes behind it render
// for both audiences.
func IsLoggedIn(users ports.UserRepository, jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := extractToken(c); token != "" {
				if user, err := resolveUser(c, users, jwtSecret, token); err == nil {
					c.Set(UserContextKey, user)
				}
			}
			return next(c)
		}
	}
}

// RestrictTo allows only the listed roles through. It must run after
// Protect.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(UserContextKey).(*domain.User)
			if !ok {
				return domain.ErrNotLoggedIn
			}
			if !allowed[user.Role] {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Protect, or nil.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(UserContextKey).(*domain.User)
	return user
}

func extractToken(c echo.Context) string {
	const prefix = "Bearer "
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	if cookie, err := c.Cookie(jwtCookieName); err == nil && cookie.Value != "" && cookie.Value != "loggedout" {
		return cookie.Value
	}
	return ""
}

func resolveUser(c echo.Context, users ports.UserRepository, jwtSecret, token string) (*domain.User, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}

	id, _ := claims["id"].(string)
	if id == "" {
		return nil, domain.ErrTokenInvalid
	}

	user, err := users.FindByID(c.Request().Context(), id)
	if err != nil {
		// Deleted or deactivated since the token was issued.
		return nil, domain.ErrTokenInvalid
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		if user.ChangedPasswordAfter(iat.Time) {
			return nil, domain.ErrPasswordChanged
		}
	}
	return user, nil
}

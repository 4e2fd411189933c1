package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

const testSecret = "test-secret"

type stubUserRepo struct {
	ports.UserRepository
	users map[string]*domain.User
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func signTestToken(t *testing.T, userID string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func protectedCall(t *testing.T, repo *stubUserRepo, decorate func(*http.Request)) (error, *domain.User, int) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *domain.User
	handler := Protect(repo, testSecret)(func(c echo.Context) error {
		got = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})
	return handler(c), got, rec.Code
}

func TestProtect_BearerHeader(t *testing.T) {
	user := &domain.User{ID: primitive.NewObjectID(), Role: domain.RoleUser, Active: true}
	repo := &stubUserRepo{users: map[string]*domain.User{user.ID.Hex(): user}}
	token := signTestToken(t, user.ID.Hex(), time.Now(), time.Now().Add(time.Hour))

	err, got, code := protectedCall(t, repo, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("current user = %+v", got)
	}
}

func TestProtect_CookieFallback(t *testing.T) {
	user := &domain.User{ID: primitive.NewObjectID(), Role: domain.RoleUser, Active: true}
	repo := &stubUserRepo{users: map[string]*domain.User{user.ID.Hex(): user}}
	token := signTestToken(t, user.ID.Hex(), time.Now(), time.Now().Add(time.Hour))

	err, got, _ := protectedCall(t, repo, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("current user = %+v", got)
	}
}

func TestProtect_MissingToken(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{}}

	err, _, _ := protectedCall(t, repo, nil)
	if !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestProtect_LoggedOutCookieIgnored(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{}}

	err, _, _ := protectedCall(t, repo, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "loggedout"})
	})
	if !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestProtect_BadSignature(t *testing.T) {
	user := &domain.User{ID: primitive.NewObjectID(), Active: true}
	repo := &stubUserRepo{users: map[string]*domain.User{user.ID.Hex(): user}}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  user.ID.Hex(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := forged.SignedString([]byte("wrong-secret"))

	err, _, _ := protectedCall(t, repo, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	})
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestProtect_DeletedUser(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{}}
	token := signTestToken(t, primitive.NewObjectID().Hex(), time.Now(), time.Now().Add(time.Hour))

	err, _, _ := protectedCall(t, repo, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestProtect_ExpiredToken(t *testing.T) {
	user := &domain.User{ID: primitive.NewObjectID(), Active: true}
	repo := &stubUserRepo{users: map[string]*domain.User{user.ID.Hex(): user}}
	token := signTestToken(t, user.ID.Hex(), time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))

	err, _, _ := protectedCall(t, repo, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestProtect_TokenIssuedBeforePasswordChange(t *testing.T) {
	user := &domain.User{
		ID:                primitive.NewObjectID(),
		Active:            true,
		PasswordChangedAt: time.Now(),
	}
	repo := &stubUserRepo{users: map[string]*domain.User{user.ID.Hex(): user}}
	// Issued an hour ago but still unexpired, so only the password-change
	// check can reject it.
	token := signTestToken(t, user.ID.Hex(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	err, _, _ := protectedCall(t, repo, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	if !errors.Is(err, domain.ErrPasswordChanged) {
		t.Fatalf("err = %v, want ErrPasswordChanged", err)
	}
}

func TestProtect_TokenIssuedAfterPasswordChange(t *testing.T) {
	user := &domain.User{
		ID:                primitive.NewObjectID(),
		Active:            true,
		PasswordChangedAt: time.Now().Add(-time.Hour),
	}
	repo := &stubUserRepo{users: map[string]*domain.User{user.ID.Hex(): user}}
	token := signTestToken(t, user.ID.Hex(), time.Now(), time.Now().Add(time.Hour))

	err, got, _ := protectedCall(t, repo, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	if err != nil {
		t.Fatalf("fresh token must pass: %v", err)
	}
	if got == nil {
		t.Fatal("user not injected")
	}
}

func TestRestrictTo(t *testing.T) {
	e := echo.New()

	run := func(role string, allowed ...string) error {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != "" {
			c.Set(UserContextKey, &domain.User{ID: primitive.NewObjectID(), Role: role})
		}
		handler := RestrictTo(allowed...)(func(c echo.Context) error {
			return c.NoContent(http.StatusNoContent)
		})
		return handler(c)
	}

	if err := run(domain.RoleAdmin, domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}
	if err := run(domain.RoleUser, domain.RoleAdmin, domain.RoleLeadGuide); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("user err = %v, want ErrForbidden", err)
	}
	if err := run("", domain.RoleAdmin); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("missing user err = %v, want ErrNotLoggedIn", err)
	}
}

func TestIsLoggedIn_NeverFails(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := IsLoggedIn(repo, testSecret)(func(c echo.Context) error {
		if CurrentUser(c) != nil {
			t.Fatal("no user expected for a bad token")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("IsLoggedIn must not fail the request: %v", err)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

type stubAuthService struct {
	signUpCalls int
	loginCalls  int

	user  *domain.User
	token string
	err   error
}

func (s *stubAuthService) SignUp(_ context.Context, in ports.SignUpInput) (*domain.User, string, error) {
	s.signUpCalls++
	if s.err != nil {
		return nil, "", s.err
	}
	return s.user, s.token, nil
}

func (s *stubAuthService) Login(context.Context, string, string) (*domain.User, string, error) {
	s.loginCalls++
	if s.err != nil {
		return nil, "", s.err
	}
	return s.user, s.token, nil
}

func (s *stubAuthService) ForgotPassword(context.Context, string, string) error {
	return s.err
}

func (s *stubAuthService) ResetPassword(context.Context, string, string) (*domain.User, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.user, s.token, nil
}

func (s *stubAuthService) UpdatePassword(context.Context, string, string, string) (*domain.User, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.user, s.token, nil
}

type stubProfileRepo struct {
	ports.UserRepository
	updated     map[string]any
	deactivated string
}

func (r *stubProfileRepo) UpdateProfile(_ context.Context, id string, fields map[string]any) (*domain.User, error) {
	r.updated = fields
	return &domain.User{ID: primitive.NewObjectID(), Name: "Updated"}, nil
}

func (r *stubProfileRepo) Deactivate(_ context.Context, id string) error {
	r.deactivated = id
	return nil
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func jwtCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "jwt" {
			return cookie
		}
	}
	return nil
}

func TestSignUp_ShortPasswordRejectedBeforeService(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc, &stubProfileRepo{}, time.Hour)

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Alice","email":"alice@example.com","password":"short","password_confirm":"short"}`)

	err := h.SignUp(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
	if svc.signUpCalls != 0 {
		t.Fatal("service must not be called for an invalid body")
	}
}

func TestSignUp_PasswordConfirmMismatch(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc, &stubProfileRepo{}, time.Hour)

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Alice","email":"alice@example.com","password":"longenough","password_confirm":"different!!"}`)

	err := h.SignUp(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestSignUp_SetsCookieAndEnvelope(t *testing.T) {
	user := &domain.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser}
	svc := &stubAuthService{user: user, token: "signed.jwt.token"}
	h := NewAuthHandler(svc, &stubProfileRepo{}, time.Hour)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Alice","email":"alice@example.com","password":"longenough","password_confirm":"longenough"}`)

	if err := h.SignUp(c); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	cookie := jwtCookie(rec)
	if cookie == nil || cookie.Value != "signed.jwt.token" || !cookie.HttpOnly {
		t.Fatalf("cookie = %+v", cookie)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Token != "signed.jwt.token" {
		t.Fatalf("envelope = %+v", resp)
	}
	if resp.Data.User == nil || resp.Data.User.Email != "alice@example.com" {
		t.Fatalf("user payload = %+v", resp.Data.User)
	}
}

func TestLogin_WrongCredentialsNoCookie(t *testing.T) {
	svc := &stubAuthService{err: domain.ErrInvalidCredentials}
	h := NewAuthHandler(svc, &stubProfileRepo{}, time.Hour)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"alice@example.com","password":"wrong-password"}`)

	err := h.Login(c)
	if err == nil {
		t.Fatal("expected an error")
	}
	if jwtCookie(rec) != nil {
		t.Fatal("no cookie may be set on failed login")
	}
}

func TestLogout_ReplacesCookie(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubProfileRepo{}, time.Hour)
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/users/logout", "")

	if err := h.Logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	cookie := jwtCookie(rec)
	if cookie == nil || cookie.Value != "loggedout" {
		t.Fatalf("cookie = %+v", cookie)
	}
	if time.Until(cookie.Expires) > time.Minute {
		t.Fatalf("logout cookie must expire quickly, expires %v", cookie.Expires)
	}
	// The overwrite carries the login cookie's attributes, otherwise strict
	// user agents keep the original.
	if !cookie.HttpOnly || cookie.Path != "/" || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("logout cookie attributes = %+v", cookie)
	}
}

func TestUpdateMe_RejectsPasswordField(t *testing.T) {
	repo := &stubProfileRepo{}
	h := NewAuthHandler(&stubAuthService{}, repo, time.Hour)

	c, _ := newTestContext(t, http.MethodPatch, "/api/v1/users/updateMe",
		`{"name":"Alice","password":"sneaky-change"}`)
	c.Set("user", &domain.User{ID: primitive.NewObjectID()})

	err := h.UpdateMe(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
	if repo.updated != nil {
		t.Fatal("profile must not be touched")
	}
}

func TestUpdateMe_FiltersToProfileFields(t *testing.T) {
	repo := &stubProfileRepo{}
	h := NewAuthHandler(&stubAuthService{}, repo, time.Hour)

	c, rec := newTestContext(t, http.MethodPatch, "/api/v1/users/updateMe",
		`{"name":"New Name","photo":"me.jpg"}`)
	c.Set("user", &domain.User{ID: primitive.NewObjectID()})

	if err := h.UpdateMe(c); err != nil {
		t.Fatalf("updateMe: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.updated["name"] != "New Name" || repo.updated["photo"] != "me.jpg" {
		t.Fatalf("fields = %v", repo.updated)
	}
	if _, ok := repo.updated["role"]; ok {
		t.Fatal("role is never client-writable here")
	}
}

func TestDeleteMe_Returns204(t *testing.T) {
	repo := &stubProfileRepo{}
	h := NewAuthHandler(&stubAuthService{}, repo, time.Hour)

	user := &domain.User{ID: primitive.NewObjectID()}
	c, rec := newTestContext(t, http.MethodDelete, "/api/v1/users/deleteMe", "")
	c.Set("user", user)

	if err := h.DeleteMe(c); err != nil {
		t.Fatalf("deleteMe: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.deactivated != user.ID.Hex() {
		t.Fatalf("deactivated = %q", repo.deactivated)
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/api/metrics"
	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// AuthHandler serves signup, login, and the account-self-service endpoints.
type AuthHandler struct {
	auth      ports.AuthService
	users     ports.UserRepository
	cookieTTL time.Duration
}

func NewAuthHandler(auth ports.AuthService, users ports.UserRepository, cookieTTL time.Duration) *AuthHandler {
	if cookieTTL <= 0 {
		cookieTTL = 90 * 24 * time.Hour
	}
	return &AuthHandler{auth: auth, users: users, cookieTTL: cookieTTL}
}

// SignUp creates an account and logs the new user straight in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, token, err := h.auth.SignUp(c.Request().Context(), ports.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusCreated, user, token)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, token, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return h.sendToken(c, http.StatusOK, user, token)
}

// Logout overwrites the auth cookie with a short-lived placeholder so
// cookie-based sessions end without the client having to clear anything.
// The replacement must carry the same attributes as the login cookie, or
// strict user agents keep the original alongside it.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(authCookie(c, "loggedout", time.Now().Add(10*time.Second)))
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// ForgotPassword answers identically for known and unknown emails.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resetURLBase := requestScheme(c) + "://" + c.Request().Host + "/api/v1/users/resetPassword"
	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email, resetURLBase); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "token sent to email",
	})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, token, err := h.auth.ResetPassword(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token)
}

// UpdateMyPassword rotates the password of the logged-in user after
// re-verifying the current one.
func (h *AuthHandler) UpdateMyPassword(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, token, err := h.auth.UpdatePassword(c.Request().Context(), user.ID.Hex(), req.PasswordCurrent, req.Password)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, updated, token)
}

func (h *AuthHandler) GetMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return respondOne(c, http.StatusOK, user)
}

// UpdateMe edits profile fields only. A password in the body is rejected
// outright rather than ignored, pointing the caller at the right endpoint.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Password != "" || req.PasswordConfirm != "" {
		return echo.NewHTTPError(http.StatusBadRequest,
			"this route is not for password updates, please use /updateMyPassword")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	fields := map[string]any{}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if req.Photo != "" {
		fields["photo"] = req.Photo
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no updatable fields in request body")
	}

	updated, err := h.users.UpdateProfile(c.Request().Context(), user.ID.Hex(), fields)
	if err != nil {
		return err
	}
	return respondOne(c, http.StatusOK, updated)
}

// DeleteMe deactivates the account; the document stays for referential
// integrity but disappears from every query.
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.users.Deactivate(c.Request().Context(), user.ID.Hex()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// authCookie builds the session cookie; login and logout both use it so
// the logout overwrite matches the attributes of the cookie it replaces.
func authCookie(c echo.Context, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     "jwt",
		Value:    value,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(c) == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// sendToken writes the token both in the body and as an http-only cookie so
// browser and API clients share the same endpoints.
func (h *AuthHandler) sendToken(c echo.Context, code int, user *domain.User, token string) error {
	c.SetCookie(authCookie(c, token, time.Now().Add(h.cookieTTL)))
	return c.JSON(code, authResponse{
		Status: "success",
		Token:  token,
		Data:   userWrap{User: user},
	})
}

// requestScheme honors the proxy header so cookies are marked Secure when
// TLS terminates upstream.
func requestScheme(c echo.Context) string {
	if proto := c.Request().Header.Get(echo.HeaderXForwardedProto); proto != "" {
		return proto
	}
	return c.Scheme()
}

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// errorResponse is the canonical error envelope. Status is "fail" for 4xx
// (the client can fix the request) and "error" for 5xx.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to deterministic HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the
//     client; in non-production environments the real cause is echoed back
//     in a detail field.
//   - Renders the {"status", "message"} envelope for every error.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, known := resolveError(err)
		resp := errorResponse{Status: statusWord(code), Message: msg}
		if !known {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
			if !production {
				resp.Detail = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

// resolveError maps err to an HTTP status and client-safe message. The third
// return reports whether the error was recognized; unrecognized errors are
// the ones worth logging in full.
func resolveError(err error) (int, string, bool) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), true
	}

	switch {
	case errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTourNotFound):
		return http.StatusNotFound, err.Error(), true
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrNotLoggedIn),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrPasswordChanged):
		return http.StatusUnauthorized, err.Error(), true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error(), true
	case errors.Is(err, domain.ErrResetTokenInvalid),
		errors.Is(err, domain.ErrDuplicateField),
		errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, primitive.ErrInvalidHex):
		return http.StatusBadRequest, "invalid ID format", true
	case mongo.IsDuplicateKeyError(err):
		return http.StatusBadRequest, "duplicate field value, please use another value", true
	}

	return http.StatusInternalServerError, "something went very wrong", false
}

func statusWord(code int) string {
	if code >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

func render(t *testing.T, err error, production bool) (int, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop(), production)(err, c)

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v body=%q", err, rec.Body.String())
	}
	return rec.Code, resp
}

func TestErrorHandler_DomainMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   int
		status string
	}{
		{domain.ErrDocumentNotFound, http.StatusNotFound, "fail"},
		{domain.ErrUserNotFound, http.StatusNotFound, "fail"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "fail"},
		{domain.ErrNotLoggedIn, http.StatusUnauthorized, "fail"},
		{domain.ErrTokenInvalid, http.StatusUnauthorized, "fail"},
		{domain.ErrPasswordChanged, http.StatusUnauthorized, "fail"},
		{domain.ErrForbidden, http.StatusForbidden, "fail"},
		{domain.ErrResetTokenInvalid, http.StatusBadRequest, "fail"},
		{domain.ErrSignatureInvalid, http.StatusBadRequest, "fail"},
		{domain.ErrDuplicateField, http.StatusBadRequest, "fail"},
	}
	for _, tc := range cases {
		code, resp := render(t, tc.err, true)
		if code != tc.code || resp.Status != tc.status {
			t.Fatalf("%v: got %d/%s, want %d/%s", tc.err, code, resp.Status, tc.code, tc.status)
		}
	}
}

func TestErrorHandler_WrappedErrorsStillMap(t *testing.T) {
	wrapped := fmt.Errorf("checkout session cs_1: %w", domain.ErrTourNotFound)
	code, resp := render(t, wrapped, true)
	if code != http.StatusNotFound {
		t.Fatalf("code = %d", code)
	}
	if resp.Message != wrapped.Error() {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestErrorHandler_InvalidObjectID(t *testing.T) {
	wrapped := fmt.Errorf("parse id %q: %w", "not-hex", primitive.ErrInvalidHex)
	code, resp := render(t, wrapped, true)
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
	if resp.Message != "invalid ID format" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestErrorHandler_EchoHTTPErrorPassthrough(t *testing.T) {
	code, resp := render(t, echo.NewHTTPError(http.StatusBadRequest, "invalid input data: name is required"), true)
	if code != http.StatusBadRequest || resp.Status != "fail" {
		t.Fatalf("got %d/%s", code, resp.Status)
	}
	if resp.Message != "invalid input data: name is required" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestErrorHandler_UnknownErrorHiddenInProduction(t *testing.T) {
	code, resp := render(t, errors.New("pq: connection refused"), true)
	if code != http.StatusInternalServerError || resp.Status != "error" {
		t.Fatalf("got %d/%s", code, resp.Status)
	}
	if resp.Message != "something went very wrong" {
		t.Fatalf("message leaks internals: %q", resp.Message)
	}
	if resp.Detail != "" {
		t.Fatalf("detail must be empty in production: %q", resp.Detail)
	}
}

func TestErrorHandler_UnknownErrorDetailInDevelopment(t *testing.T) {
	_, resp := render(t, errors.New("pq: connection refused"), false)
	if resp.Detail != "pq: connection refused" {
		t.Fatalf("detail = %q", resp.Detail)
	}
}

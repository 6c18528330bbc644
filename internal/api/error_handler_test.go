package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

func runErrorHandler(t *testing.T, err error) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if jerr := json.Unmarshal(rec.Body.Bytes(), &body); jerr != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), jerr)
	}
	return rec, body
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"expired token", domain.ExpiredToken(), http.StatusUnauthorized},
		{"invalid token", fmt.Errorf("%w: bad signature", domain.ErrInvalidToken), http.StatusUnauthorized},
		{"unknown user", domain.ErrUserNotFound, http.StatusNotFound},
		{"user exists", domain.ErrUserExists, http.StatusConflict},
		{"invalid input", domain.ErrInvalidUserInput, http.StatusBadRequest},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest},
		{"unexpected", errors.New("mongo exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := runErrorHandler(t, tc.err)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if body.Error == "" {
				t.Fatalf("expected error message")
			}
			if rec.Header().Get("Retry-After") != "" {
				t.Fatalf("unexpected Retry-After header")
			}
		})
	}
}

func TestErrorHandler_UnexpectedErrorIsNotLeaked(t *testing.T) {
	_, body := runErrorHandler(t, errors.New("dial tcp 10.0.0.3:27017"))
	if body.Error != "internal server error" {
		t.Fatalf("internal detail leaked: %q", body.Error)
	}
}

func TestErrorHandler_AccountLocked(t *testing.T) {
	err := fmt.Errorf("verify: %w", &domain.AccountLockedError{Remaining: 90*time.Second + time.Millisecond})
	rec, body := runErrorHandler(t, err)

	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rec.Code)
	}
	if body.RetryAfterSeconds != 91 {
		t.Fatalf("expected 91 seconds remaining, got %d", body.RetryAfterSeconds)
	}
	if rec.Header().Get("Retry-After") != "91" {
		t.Fatalf("expected Retry-After 91, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestErrorHandler_LoginUnavailable(t *testing.T) {
	rec, body := runErrorHandler(t, domain.ErrLoginUnavailable)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body.RetryAfterSeconds != loginRetryAfterSeconds || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected retry hint, got %+v", body)
	}
}

func TestErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.NoContent(http.StatusAccepted)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrInvalidCredentials, c)
	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("committed response was rewritten")
	}
}

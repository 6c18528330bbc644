package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// loginRetryAfterSeconds is advertised with 503 responses from the login
// pipeline; the per-user worker is expected to drain within that window.
const loginRetryAfterSeconds = 3

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp, code := resolveError(err, log, c)
		if resp.RetryAfterSeconds > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (errorResponse, int) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return errorResponse{Error: fmt.Sprintf("%v", he.Message)}, he.Code
	}

	var locked *domain.AccountLockedError
	if errors.As(err, &locked) {
		return errorResponse{
			Error:             "account locked",
			RetryAfterSeconds: locked.RemainingSeconds(),
		}, http.StatusLocked
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrLoginUnavailable):
		return errorResponse{
			Error:             "login temporarily unavailable",
			RetryAfterSeconds: loginRetryAfterSeconds,
		}, http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidCredentials):
		return errorResponse{Error: "invalid credentials"}, http.StatusUnauthorized
	case errors.Is(err, domain.ErrTokenExpired):
		return errorResponse{Error: "token expired"}, http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidToken):
		return errorResponse{Error: "invalid token"}, http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotFound):
		return errorResponse{Error: "user not found"}, http.StatusNotFound
	case errors.Is(err, domain.ErrUserExists):
		return errorResponse{Error: "user already exists"}, http.StatusConflict
	case errors.Is(err, domain.ErrInvalidUserInput):
		return errorResponse{Error: "username and password are required"}, http.StatusBadRequest
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return errorResponse{Error: "internal server error"}, http.StatusInternalServerError
}

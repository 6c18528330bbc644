package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ledgerly/accounting-api/internal/api/middleware"
	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware and
// performs a fast-fail check before any service call.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.Name == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication principal")
	}
	return p, nil
}

// ctxAccountPrincipal is ctxPrincipal restricted to principals backed by a
// stored account. Transient principals cannot manage account sessions.
func ctxAccountPrincipal(c echo.Context) (domain.Principal, error) {
	p, err := ctxPrincipal(c)
	if err != nil {
		return domain.Principal{}, err
	}
	if p.Transient {
		return domain.Principal{}, echo.NewHTTPError(http.StatusForbidden, "transient principal has no account")
	}
	return p, nil
}

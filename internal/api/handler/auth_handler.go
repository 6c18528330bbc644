package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

// createUserRequest is the admin-only variant of registerRequest.
type createUserRequest struct {
	registerRequest
	IsAdmin bool `json:"is_admin"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type renewalRequest struct {
	RenewalToken string `json:"renewal_token" validate:"required"`
}

type principalResponse struct {
	Name      string   `json:"name"`
	Transient bool     `json:"transient"`
	Roles     []string `json:"roles"`
}

type sessionResponse struct {
	TokenType        string            `json:"token_type"`
	AccessToken      string            `json:"access_token"`
	AccessExpiresAt  string            `json:"access_expires_at"`
	RenewalToken     string            `json:"renewal_token"`
	RenewalExpiresAt string            `json:"renewal_expires_at"`
	Principal        principalResponse `json:"principal"`
}

type registerResponse struct {
	User *domain.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toPrincipalResponse(p domain.Principal) principalResponse {
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	return principalResponse{Name: p.Name, Transient: p.Transient, Roles: roles}
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		TokenType:        "Bearer",
		AccessToken:      s.AccessToken,
		AccessExpiresAt:  s.AccessExpiresAt.UTC().Format(time.RFC3339),
		RenewalToken:     s.RenewalToken,
		RenewalExpiresAt: s.RenewalExpiresAt.UTC().Format(time.RFC3339),
		Principal:        toPrincipalResponse(s.Principal),
	}
}

// Register creates a new USER account. Self-registration never grants ADMIN.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, req.Email, false)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{User: user})
}

// CreateUser lets an administrator create accounts, ADMIN ones included.
//
// @Summary      Create a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /admin/users [post]
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, req.Email, req.IsAdmin)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{User: user})
}

// Login authenticates a user and returns a session and a renewal token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      423   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Refresh exchanges a renewal token for a new session token.
//
// @Summary      Refresh a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      renewalRequest  true  "Renewal token"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req renewalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.authService.Refresh(c.Request().Context(), req.RenewalToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Logout revokes a renewal token.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Param        body  body  renewalRequest  true  "Renewal token"
// @Success      204
// @Failure      400   {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req renewalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.Logout(c.Request().Context(), req.RenewalToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the principal behind the presented session token.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPrincipalResponse(p))
}

// LogoutEverywhere revokes every renewal token of the calling account.
//
// @Summary      Logout from every device
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /auth/logout-everywhere [post]
func (h *AuthHandler) LogoutEverywhere(c echo.Context) error {
	p, err := ctxAccountPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.authService.LogoutEverywhere(c.Request().Context(), p.Name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "all renewal tokens revoked"})
}

// RotateSigningKeys replaces the session signing key; every outstanding
// session token stops validating.
//
// @Summary      Rotate session signing keys
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/signing-keys/rotate [post]
func (h *AuthHandler) RotateSigningKeys(c echo.Context) error {
	if err := h.authService.RotateSigningKeys(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "signing keys rotated"})
}

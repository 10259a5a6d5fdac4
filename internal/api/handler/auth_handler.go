package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Username string `json:"username"  validate:"required,min=3,max=50"`
	Email    string `json:"email"     validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	Password string `json:"password"  validate:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.PublicUser
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user.Public())
}

// Token runs the OAuth2 password grant.
//
// @Summary      Obtain an access and a refresh token
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username    formData  string  true   "Username"
// @Param        password    formData  string  true   "Password"
// @Param        grant_type  formData  string  false  "Must be password when present"
// @Success      200  {object}  domain.TokenPair
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	if grant := c.FormValue("grant_type"); grant != "" && grant != "password" {
		return &OAuth2Error{
			Status:      http.StatusBadRequest,
			Code:        OAuthUnsupportedGrantType,
			Description: "Only the password grant is supported",
		}
	}

	username := c.FormValue("username")
	if username == "" {
		return missingParameter("username")
	}
	password := c.FormValue("password")
	if password == "" {
		return missingParameter("password")
	}

	pair, err := h.authService.Login(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrant) {
			return invalidGrant("Invalid username or password")
		}
		return err
	}

	return c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  domain.AccessGrant
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	grant, err := h.authService.Refresh(c.Request().Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrant) {
			return invalidGrant("Invalid refresh token")
		}
		return err
	}

	return c.JSON(http.StatusOK, grant)
}

// Logout revokes the presented access token.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), ctxToken(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Successfully logged out"})
}

// Me returns the authenticated user.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.PublicUser
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /users/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.Public())
}

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/internal/api/handler"
	"github.com/99minutos/auth-api/internal/core/domain"
)

// detailResponse is the canonical error envelope for non-OAuth2 errors.
type detailResponse struct {
	Detail string `json:"detail"`
}

// oauthErrorResponse is the RFC 6749 error envelope used by the token endpoints.
type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders *handler.OAuth2Error as {"error", "error_description"}.
//   - Maps known domain errors to their HTTP status and a {"detail"} body.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var oe *handler.OAuth2Error
		if errors.As(err, &oe) {
			_ = c.JSON(oe.Status, oauthErrorResponse{Error: oe.Code, ErrorDescription: oe.Description})
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, detailResponse{Detail: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, rate limiter, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Int("status", he.Code).Msg("http error")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusBadRequest, "Username already registered"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, domain.ErrInvalidGrant):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusBadRequest, "Inactive user"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Not enough privileges"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Internal server error"
}

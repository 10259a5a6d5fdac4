package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-api/internal/api/handler"
	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/ports"
)

// Auth resolves the bearer access token into a user and injects both into
// the echo context. Missing or invalid tokens yield domain.ErrUnauthenticated
// and disabled accounts domain.ErrAccountDisabled.
func Auth(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrUnauthenticated
			}

			user, err := authService.CurrentUser(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(handler.ContextKeyUser, user)
			c.Set(handler.ContextKeyToken, token)

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

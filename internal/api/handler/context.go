package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// Keys under which the Auth middleware stores the caller.
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "access_token"
)

// ctxUser returns the user injected by the Auth middleware. A missing user
// means the route was mounted without it, so it fails closed.
func ctxUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get(ContextKeyUser).(*domain.User)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return user, nil
}

func ctxToken(c echo.Context) string {
	token, _ := c.Get(ContextKeyToken).(string)
	return token
}

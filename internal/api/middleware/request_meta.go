package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// RequestMeta copies the client IP and request id into the request context so
// the service layer can attach them to audit events. It must run after the
// RequestID middleware.
func RequestMeta() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			ctx := domain.WithRequestMeta(c.Request().Context(), domain.RequestMeta{
				RemoteIP:  c.RealIP(),
				RequestID: rid,
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

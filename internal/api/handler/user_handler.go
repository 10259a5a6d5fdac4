package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// List returns a page of users. Superuser only.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip          query  int   false  "Offset"      default(0)
// @Param        limit         query  int   false  "Page size"   default(100)
// @Param        is_active     query  bool  false  "Filter by active flag"
// @Param        is_superuser  query  bool  false  "Filter by superuser flag"
// @Success      200  {array}   domain.PublicUser
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	filter, err := parseUserFilter(c)
	if err != nil {
		return err
	}

	users, err := h.authService.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, out)
}

func parseUserFilter(c echo.Context) (domain.UserFilter, error) {
	f := domain.UserFilter{Limit: domain.DefaultUserListLimit}

	err := echo.QueryParamsBinder(c).
		Int("skip", &f.Skip).
		Int("limit", &f.Limit).
		BindError()
	if err != nil {
		return f, echo.NewHTTPError(http.StatusUnprocessableEntity, "skip and limit must be integers")
	}
	if f.Skip < 0 {
		return f, echo.NewHTTPError(http.StatusUnprocessableEntity, "skip must be at least 0")
	}
	if f.Limit < 1 || f.Limit > domain.MaxUserListLimit {
		return f, echo.NewHTTPError(http.StatusUnprocessableEntity,
			"limit must be between 1 and "+strconv.Itoa(domain.MaxUserListLimit))
	}

	if f.IsActive, err = optionalBool(c, "is_active"); err != nil {
		return f, err
	}
	if f.IsSuperuser, err = optionalBool(c, "is_superuser"); err != nil {
		return f, err
	}
	return f, nil
}

func optionalBool(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, name+" must be a boolean")
	}
	return &v, nil
}

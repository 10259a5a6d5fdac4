package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-api/internal/api/handler"
	"github.com/99minutos/auth-api/internal/core/domain"
)

func TestRequireSuperuser_Allows(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set(handler.ContextKeyUser, &domain.User{Username: "root", IsSuperuser: true})

	called := false
	next := RequireSuperuser()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := next(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireSuperuser_Forbids(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(handler.ContextKeyUser, &domain.User{Username: "alice"})

	err := RequireSuperuser()(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})(c)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireSuperuser_WithoutUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := RequireSuperuser()(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})(c)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

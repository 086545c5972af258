package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func requestWithRole(t *testing.T, role string, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), RoleKey, role)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestRequireRoleAllows(t *testing.T) {
	rec := requestWithRole(t, "RECEPTIONIST", RequireRole("RECEPTIONIST", "STAFF"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRoleAdminBypass(t *testing.T) {
	rec := requestWithRole(t, "ADMIN", RequireRole("DOCTOR"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected admin to pass doctor gate, got %d", rec.Code)
	}
}

func TestRequireRoleDenies(t *testing.T) {
	rec := requestWithRole(t, "PATIENT", RequireRole("DOCTOR"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleNoRole(t *testing.T) {
	rec := requestWithRole(t, "", RequireRole("DOCTOR"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for missing role, got %d", rec.Code)
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
)

func contextWithSession(sess *Session) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		req = req.WithContext(WithSession(req.Context(), *sess))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := contextWithSession(&Session{Username: "dr_a", Role: clinic.RoleDoctor, EntityID: "d1"})

	err := RequireRole(clinic.RoleDoctor, clinic.RoleAdmin)(okHandler)(c)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := contextWithSession(&Session{Username: "ann", Role: clinic.RolePatient, EntityID: "p1"})

	err := RequireRole(clinic.RoleDoctor)(okHandler)(c)
	expectCode(t, err, http.StatusForbidden)
}

func TestRequireRole_AdminIsNotDoctor(t *testing.T) {
	c, _ := contextWithSession(&Session{Username: "admin", Role: clinic.RoleAdmin})

	err := RequireRole(clinic.RoleDoctor)(okHandler)(c)
	expectCode(t, err, http.StatusForbidden)
}

func TestRequireRole_NoSession(t *testing.T) {
	c, _ := contextWithSession(nil)

	err := RequireRole(clinic.RolePatient)(okHandler)(c)
	expectCode(t, err, http.StatusUnauthorized)
}

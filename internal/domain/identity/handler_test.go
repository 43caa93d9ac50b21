package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

func newTestHandler() (*Handler, *auth.TokenIssuer, *auth.RevocationList) {
	svc, _ := newTestService()
	tokens := auth.NewTokenIssuer([]byte("test-secret-key-for-identity-tests"), time.Hour)
	revocations := auth.NewRevocationList()
	return NewHandler(svc, tokens, revocations), tokens, revocations
}

func jsonContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectHTTPCode(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestHandler_SignupAndLogin(t *testing.T) {
	h, tokens, _ := newTestHandler()

	c, rec := jsonContext(http.MethodPost, `{"username":"Ann","password":"pw","name":"Ann Lee","age":30,"gender":"F"}`)
	if err := h.Signup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var signup struct {
		Patient clinic.Patient `json:"patient"`
		Token   auth.Token     `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &signup); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if signup.Patient.Name != "Ann Lee" || signup.Token.AccessToken == "" {
		t.Errorf("unexpected signup response %s", rec.Body.String())
	}

	c, rec = jsonContext(http.MethodPost, `{"username":"ann","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var token auth.Token
	json.Unmarshal(rec.Body.Bytes(), &token)
	claims, err := tokens.Parse(token.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if sess := claims.Session(); sess.Username != "ann" || sess.EntityID != signup.Patient.ID {
		t.Errorf("unexpected session %+v", sess)
	}
}

func TestHandler_LoginInvalid(t *testing.T) {
	h, _, _ := newTestHandler()

	c, _ := jsonContext(http.MethodPost, `{"username":"nobody","password":"pw"}`)
	expectHTTPCode(t, h.Login(c), http.StatusUnauthorized)
}

func TestHandler_SignupDuplicate(t *testing.T) {
	h, _, _ := newTestHandler()
	body := `{"username":"ann","password":"pw","name":"Ann"}`

	c, _ := jsonContext(http.MethodPost, body)
	if err := h.Signup(c); err != nil {
		t.Fatal(err)
	}
	c, _ = jsonContext(http.MethodPost, body)
	expectHTTPCode(t, h.Signup(c), http.StatusConflict)
}

func TestHandler_Me(t *testing.T) {
	h, _, _ := newTestHandler()

	c, rec := jsonContext(http.MethodGet, "")
	c.Set("session", auth.Session{Username: "dr_a", Role: clinic.RoleDoctor, EntityID: "d1"})
	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"dr_a"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, _ = jsonContext(http.MethodGet, "")
	expectHTTPCode(t, h.Me(c), http.StatusUnauthorized)
}

func TestHandler_Logout(t *testing.T) {
	h, tokens, revocations := newTestHandler()
	token, _ := tokens.Issue(auth.Session{Username: "ann", Role: clinic.RolePatient, EntityID: "p1"})
	claims, _ := tokens.Parse(token.AccessToken)

	c, rec := jsonContext(http.MethodPost, "")
	c.Set("claims", claims)
	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if !revocations.IsRevoked(claims.ID) {
		t.Error("expected token to be revoked")
	}
}

func TestHandler_AddDoctorAndList(t *testing.T) {
	h, _, _ := newTestHandler()

	c, rec := jsonContext(http.MethodPost, `{"name":"Jane Doe","specialty":"Cardiology","password":"pw"}`)
	c.Set("session", adminSession)
	if err := h.AddDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"username":"jane_doe"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	c, _ = jsonContext(http.MethodPost, `{"name":"Jane Doe","specialty":"Dermatologist","password":"pw"}`)
	c.Set("session", adminSession)
	expectHTTPCode(t, h.AddDoctor(c), http.StatusConflict)

	c, rec = jsonContext(http.MethodGet, "")
	c.Set("session", auth.Session{Username: "ann", Role: clinic.RolePatient, EntityID: "p1"})
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data  []clinic.Doctor `json:"data"`
		Total int             `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].Name != "Jane Doe" {
		t.Errorf("unexpected list %s", rec.Body.String())
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, _ := newTestHandler()
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"POST /api/v1/auth/login":    false,
		"POST /api/v1/auth/signup":   false,
		"GET /api/v1/auth/me":        false,
		"POST /api/v1/auth/logout":   false,
		"GET /api/v1/doctors":        false,
		"POST /api/v1/admin/doctors": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", route)
		}
	}
}

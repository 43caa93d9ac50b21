package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/config"
	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/domain/identity"
	"github.com/clinic/frontdesk/internal/domain/scheduling"
	"github.com/clinic/frontdesk/internal/platform/blobstore"
	"github.com/clinic/frontdesk/internal/platform/websocket"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		LogLevel:       "info",
		StoreDriver:    "file",
		DataFile:       "unused.json",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTTL:     time.Hour,
		AdminUsername:  "admin",
		AdminPassword:  "adminpass",
		CORSOrigins:    []string{"http://localhost:3000"},
		BodyLimit:      "1M",
		MaxUploadSize:  "1M",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		RequestTimeout: 5 * time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *server {
	t.Helper()
	srv := newServer(serverDeps{
		cfg:    cfg,
		logger: zerolog.Nop(),
		store:  clinic.NewMemoryStore(),
		blobs:  blobstore.NewInMemoryBlobStore(0),
		grid:   scheduling.DefaultGrid(),
		loc:    time.UTC,
	})
	if err := seedAccounts(context.Background(), srv.identity, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("seedAccounts() error: %v", err)
	}
	return srv
}

func call(t *testing.T, srv *server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv *server, username, password string) string {
	t.Helper()
	rec := call(t, srv, http.MethodPost, "/api/v1/auth/login", "", identity.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil || tok.AccessToken == "" {
		t.Fatalf("login %s: no access token in %s", username, rec.Body.String())
	}
	return tok.AccessToken
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()

	cfg.LogLevel = "debug"
	if got := newLogger(cfg).GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", got)
	}
	cfg.LogLevel = "loud"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %s", got)
	}
}

func TestOpenBackend_FileDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DataFile = t.TempDir() + "/clinic.json"

	be, err := openBackend(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("openBackend() error: %v", err)
	}
	defer be.Close()

	fs, ok := be.store.(*clinic.FileStore)
	if !ok {
		t.Fatalf("expected *clinic.FileStore, got %T", be.store)
	}
	if fs.Path() != cfg.DataFile {
		t.Errorf("expected path %s, got %s", cfg.DataFile, fs.Path())
	}
	if be.pool != nil || len(be.recorders) != 0 {
		t.Error("file driver should not open a pool or audit recorder")
	}
}

func TestServer_HealthIsPublic(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := call(t, srv, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on every response")
	}
}

func TestServer_RequiresSession(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for _, path := range []string{"/api/v1/slots", "/api/v1/auth/me", "/api/v1/admin/visits"} {
		if rec := call(t, srv, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestServer_BookingFlow(t *testing.T) {
	srv := newTestServer(t, testConfig())
	adminToken := login(t, srv, "admin", "adminpass")

	rec := call(t, srv, http.MethodPost, "/api/v1/admin/doctors", adminToken,
		identity.AddDoctorRequest{Name: "Jane Doe", Specialty: "Cardiology", Password: "docpass"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add doctor: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var acct identity.DoctorAccount
	if err := json.Unmarshal(rec.Body.Bytes(), &acct); err != nil {
		t.Fatal(err)
	}
	feed := &websocket.Client{ID: "jane", Topics: []string{websocket.DoctorTopic(acct.Doctor.ID)}, Send: make(chan []byte, 4)}
	srv.hub.Register(feed)

	rec = call(t, srv, http.MethodPost, "/api/v1/auth/signup", "",
		identity.SignupRequest{Username: "ann", Password: "annpass", Name: "Ann", Age: 30, Gender: "F"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var signup struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &signup); err != nil {
		t.Fatal(err)
	}
	patientToken := signup.Token.AccessToken

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(clinic.DateLayout)
	rec = call(t, srv, http.MethodPost, "/api/v1/appointments", patientToken,
		scheduling.BookingRequest{Date: tomorrow, Time: "09:00", Problem: "Heart"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var booking scheduling.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &booking); err != nil {
		t.Fatal(err)
	}
	if booking.DoctorName != "Jane Doe" || booking.Specialty != "Cardiology" {
		t.Errorf("unexpected booking %+v", booking)
	}
	if len(feed.Send) != 1 {
		t.Errorf("expected the doctor's live feed to receive the booking, got %d events", len(feed.Send))
	}

	// Patients cannot read the admin dashboard.
	if rec := call(t, srv, http.MethodGet, "/api/v1/admin/visits", patientToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient, got %d", rec.Code)
	}

	rec = call(t, srv, http.MethodGet, "/api/v1/admin/visits", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("visits: expected 200, got %d", rec.Code)
	}
	var visits struct {
		Dates  []string `json:"dates"`
		Counts []int    `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &visits); err != nil {
		t.Fatal(err)
	}
	if len(visits.Dates) != 1 || visits.Dates[0] != tomorrow || visits.Counts[0] != 1 {
		t.Errorf("unexpected visits %+v", visits)
	}

	doctorToken := login(t, srv, "jane_doe", "docpass")
	if rec := call(t, srv, http.MethodGet, "/api/v1/doctor/schedule", doctorToken, nil); rec.Code != http.StatusOK {
		t.Errorf("schedule: expected 200, got %d", rec.Code)
	}
}

func TestServer_LogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t, testConfig())
	token := login(t, srv, "admin", "adminpass")

	if rec := call(t, srv, http.MethodPost, "/api/v1/auth/logout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	if rec := call(t, srv, http.MethodGet, "/api/v1/auth/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected revoked token to be rejected, got %d", rec.Code)
	}
}

func TestSeedAccounts_DemoPatient(t *testing.T) {
	cfg := testConfig()
	cfg.SeedDemoPatient = true
	srv := newTestServer(t, cfg)

	login(t, srv, identity.DemoPatientUsername, identity.DemoPatientPassword)

	// Seeding again leaves the existing accounts alone.
	if err := seedAccounts(context.Background(), srv.identity, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("second seedAccounts() error: %v", err)
	}
}

package reports

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

func multipartRequest(t *testing.T, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func withSession(req *http.Request, sess auth.Session) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("session", sess)
	return c, rec
}

func TestHandler_UploadAndDownload(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	req := multipartRequest(t, map[string]string{"patient_id": "p1", "details": "X-ray"}, "chest x-ray.png", "png-bytes")
	c, rec := withSession(req, drA)
	if err := h.UploadReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var report clinic.Report
	json.Unmarshal(rec.Body.Bytes(), &report)
	if report.File == "" || report.Details != "X-ray" {
		t.Fatalf("unexpected report %s", rec.Body.String())
	}

	c, rec = withSession(httptest.NewRequest(http.MethodGet, "/", nil), ann)
	c.SetParamNames("name")
	c.SetParamValues(report.File)
	if err := h.DownloadFile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "png-bytes" || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("unexpected download %q %q", rec.Body.String(), rec.Header().Get(echo.HeaderContentType))
	}

	c, _ = withSession(httptest.NewRequest(http.MethodGet, "/", nil), bo)
	c.SetParamNames("name")
	c.SetParamValues(report.File)
	expectCode(t, h.DownloadFile(c), http.StatusForbidden)
}

func TestHandler_UploadErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	tests := []struct {
		name   string
		fields map[string]string
		file   string
		data   string
		code   int
	}{
		{"nothing to store", map[string]string{"patient_id": "p1"}, "", "", http.StatusBadRequest},
		{"bad extension", map[string]string{"patient_id": "p1"}, "a.exe", "x", http.StatusUnsupportedMediaType},
		{"too large", map[string]string{"patient_id": "p1"}, "a.pdf", strings.Repeat("x", 100), http.StatusRequestEntityTooLarge},
		{"unknown patient", map[string]string{"patient_id": "zz", "details": "x"}, "", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := withSession(multipartRequest(t, tt.fields, tt.file, tt.data), drA)
			expectCode(t, h.UploadReport(c), tt.code)
		})
	}
}

func TestHandler_UploadDetailsAsForm(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader("patient_id=p1&details=rest"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c, rec := withSession(req, drA)
	if err := h.UploadReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_PatientReports(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	c, rec := withSession(httptest.NewRequest(http.MethodGet, "/", nil), ann)
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := h.PatientReports(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}

	c, _ = withSession(httptest.NewRequest(http.MethodGet, "/", nil), bo)
	c.SetParamNames("id")
	c.SetParamValues("p1")
	expectCode(t, h.PatientReports(c), http.StatusForbidden)
}

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

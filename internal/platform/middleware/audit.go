package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/platform/auth"
)

// AuditEntry records who touched which clinic resource.
type AuditEntry struct {
	Username   string
	Role       string
	Resource   string
	PatientID  string
	Action     string // read, create
	IPAddress  string
	Path       string
	Method     string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries. Without one the middleware only logs.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every /api/v1 request after the handler ran, with the session
// that made it and the patient it concerned when the route names one.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       req.URL.Path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				StatusCode: auditStatus(c, err),
				Action:     httpMethodToAction(req.Method),
				Resource:   resourceFromPath(req.URL.Path),
				PatientID:  c.Param("id"),
			}
			if !strings.HasPrefix(c.Path(), "/api/v1/patients/") {
				entry.PatientID = ""
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if sess, ok := auth.SessionFromContext(c.Request().Context()); ok {
				entry.Username = sess.Username
				entry.Role = string(sess.Role)
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("username", entry.Username).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

// auditStatus is the status the client will see. A handler error has not been
// written yet when the middleware runs, so it is taken from the error.
func auditStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "create"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}

// resourceFromPath returns the first segment after /api/v1/.
func resourceFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}

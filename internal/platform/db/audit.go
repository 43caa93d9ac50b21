package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/frontdesk/internal/platform/middleware"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// AuditLog writes access entries to the audit_log table.
type AuditLog struct {
	db      execer
	timeout time.Duration
}

func NewAuditLog(db execer) *AuditLog {
	return &AuditLog{db: db, timeout: 3 * time.Second}
}

func (a *AuditLog) RecordAccess(e middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	_, err := a.db.Exec(ctx, `
		INSERT INTO audit_log (username, role, resource, patient_id, action, method, path, status, request_id, remote_ip, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.Username, e.Role, e.Resource, e.PatientID, e.Action, e.Method, e.Path,
		e.StatusCode, e.RequestID, e.IPAddress, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Package reports attaches doctors' notes and uploaded files to patients and
// controls who may read them.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/internal/platform/blobstore"
	"github.com/clinic/frontdesk/internal/platform/websocket"
)

// UploadRequest carries a report. File may be nil when only details are given.
type UploadRequest struct {
	PatientID string
	Details   string
	FileName  string
	File      io.Reader
}

type Service struct {
	store  clinic.Store
	blobs  blobstore.BlobStore
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
	events websocket.EventPublisher
}

func NewService(store clinic.Store, blobs blobstore.BlobStore, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, blobs: blobs, loc: loc, now: time.Now, logger: logger}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetPublisher tells patients when a report is added for them.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.events = p
}

// UploadReport stores the file, if any, under a generated name and appends a
// report dated today to the patient's list. The file is removed again when
// the document cannot be saved.
func (s *Service) UploadReport(ctx context.Context, sess auth.Session, req UploadRequest) (*clinic.Report, error) {
	if !sess.Is(clinic.RoleDoctor) {
		return nil, clinic.ErrForbidden
	}
	patientID := strings.TrimSpace(req.PatientID)
	details := strings.TrimSpace(req.Details)
	if patientID == "" {
		return nil, clinic.Invalid("patient_id", "is required")
	}
	if details == "" && req.File == nil {
		return nil, clinic.Invalid("report", "details or file is required")
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if !doc.Patients.Has(patientID) {
		return nil, clinic.NotFound("patient", patientID)
	}

	var stored string
	if req.File != nil {
		info, err := s.blobs.Put(ctx, req.FileName, req.File)
		if err != nil {
			return nil, fileError(err)
		}
		stored = info.Name
	}

	var report clinic.Report
	err = clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		if !doc.Patients.Has(patientID) {
			return clinic.NotFound("patient", patientID)
		}
		report = clinic.Report{
			ReportID: doc.NewID(),
			Date:     s.now().In(s.loc).Format(clinic.DateLayout),
			DoctorID: sess.EntityID,
			Details:  details,
			File:     stored,
		}
		doc.AddReport(patientID, report)
		return nil
	})
	if err != nil {
		if stored != "" {
			if delErr := s.blobs.Delete(ctx, stored); delErr != nil {
				s.logger.Error().Err(delErr).Str("file", stored).Msg("failed to remove orphaned upload")
			}
		}
		return nil, err
	}

	s.logger.Info().
		Str("report_id", report.ReportID).
		Str("patient_id", patientID).
		Str("doctor_id", sess.EntityID).
		Bool("has_file", stored != "").
		Msg("report uploaded")
	websocket.Notify(ctx, s.events, s.logger, websocket.NewEvent(
		websocket.EventReportUploaded, websocket.PatientTopic(patientID), report.ReportID, report))
	return &report, nil
}

// fileError turns an unusable file name into a validation error. Size and
// type rejections pass through for blobstore.HTTPError (413, 415).
func fileError(err error) error {
	switch {
	case errors.Is(err, blobstore.ErrMissingFileName),
		errors.Is(err, blobstore.ErrInvalidName):
		return clinic.Invalid("file", err.Error())
	}
	return err
}

func canRead(sess auth.Session, patientID string) bool {
	switch sess.Role {
	case clinic.RoleDoctor, clinic.RoleAdmin:
		return true
	case clinic.RolePatient:
		return sess.EntityID == patientID
	}
	return false
}

// PatientReports lists a patient's reports with doctor names resolved.
// Patients may only read their own.
func (s *Service) PatientReports(ctx context.Context, sess auth.Session, patientID string) ([]clinic.Report, error) {
	if !canRead(sess, patientID) {
		return nil, clinic.ErrForbidden
	}
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if !doc.Patients.Has(patientID) && !doc.Reports.Has(patientID) {
		return nil, clinic.NotFound("patient", patientID)
	}
	return doc.ReportsFor(patientID), nil
}

// AuthorizeFile checks that name is attached to a report the caller may
// read.
func (s *Service) AuthorizeFile(ctx context.Context, sess auth.Session, name string) error {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	for _, pid := range doc.Reports.Keys() {
		list, _ := doc.Reports.Get(pid)
		for _, r := range list {
			if r.File != name {
				continue
			}
			if !canRead(sess, pid) {
				return clinic.ErrForbidden
			}
			return nil
		}
	}
	return clinic.NotFound("file", name)
}

func (s *Service) Blobs() blobstore.BlobStore { return s.blobs }

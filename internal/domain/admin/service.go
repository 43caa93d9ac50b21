// Package admin serves the admin dashboard figures.
package admin

import (
	"context"
	"fmt"
	"sort"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

// VisitCounts is the number of Approved appointments per date, sorted by
// date, in the parallel-array shape charting libraries take.
type VisitCounts struct {
	Dates  []string `json:"dates"`
	Counts []int    `json:"counts"`
}

// Overview totals each collection of the clinic document.
type Overview struct {
	Doctors      int `json:"doctors"`
	Patients     int `json:"patients"`
	Appointments int `json:"appointments"`
	Emergencies  int `json:"emergencies"`
	Referrals    int `json:"referrals"`
	Reports      int `json:"reports"`
}

type Service struct {
	store clinic.Store
}

func NewService(store clinic.Store) *Service {
	return &Service{store: store}
}

func (s *Service) load(ctx context.Context, sess auth.Session) (*clinic.Document, error) {
	if !sess.Is(clinic.RoleAdmin) {
		return nil, clinic.ErrForbidden
	}
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

func (s *Service) VisitCounts(ctx context.Context, sess auth.Session) (*VisitCounts, error) {
	doc, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	return countVisits(doc), nil
}

func countVisits(doc *clinic.Document) *VisitCounts {
	perDate := make(map[string]int)
	for _, a := range doc.Appointments {
		if a.Status == clinic.StatusApproved {
			perDate[a.Date]++
		}
	}

	out := &VisitCounts{Dates: make([]string, 0, len(perDate)), Counts: make([]int, 0, len(perDate))}
	for d := range perDate {
		out.Dates = append(out.Dates, d)
	}
	sort.Strings(out.Dates)
	for _, d := range out.Dates {
		out.Counts = append(out.Counts, perDate[d])
	}
	return out
}

func (s *Service) Overview(ctx context.Context, sess auth.Session) (*Overview, error) {
	doc, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	o := &Overview{
		Doctors:   doc.Doctors.Len(),
		Patients:  doc.Patients.Len(),
		Referrals: len(doc.Referrals),
	}
	for _, a := range doc.Appointments {
		if a.Status == clinic.StatusEmergency {
			o.Emergencies++
		} else {
			o.Appointments++
		}
	}
	for _, list := range doc.Reports.Values() {
		o.Reports += len(list)
	}
	return o, nil
}

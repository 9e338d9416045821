package dashboard

import (
	"context"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/prescription"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
)

// Sources the dashboard aggregates read from.
type PatientSource interface {
	ListPatients(ctx context.Context, limit, offset int) ([]*patient.Patient, int, error)
}

type VisitSource interface {
	// VisitsInWindow returns visits with visit_date in (from, to].
	VisitsInWindow(ctx context.Context, from, to int64) ([]*visit.Visit, error)
}

type PrescriptionSource interface {
	CountPendingInWindow(ctx context.Context, from, to int64) (int, error)
	PendingInWindow(ctx context.Context, from, to int64) ([]*prescription.Prescription, error)
}

// Stats is the dashboard summary card payload.
type Stats struct {
	TotalPatients        int `json:"totalPatients"`
	TodayVisits          int `json:"todayVisits"`
	FollowUpsDue         int `json:"followUpsDue"`
	PendingPrescriptions int `json:"pendingPrescriptions"`
}

type Service struct {
	patients      PatientSource
	visits        VisitSource
	prescriptions PrescriptionSource
	now           func() time.Time
}

func NewService(patients PatientSource, visits VisitSource, prescriptions PrescriptionSource) *Service {
	return &Service{
		patients:      patients,
		visits:        visits,
		prescriptions: prescriptions,
		now:           time.Now,
	}
}

// SetClock overrides the time source. Tests pin it.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// todayWindow converts the inclusive day bounds to the (from, to] shape
// the window queries take.
func (s *Service) todayWindow() (from, to int64) {
	start, end := TodayRange(s.now())
	return start - 1, end
}

func (s *Service) TodayVisits(ctx context.Context) ([]*visit.Visit, error) {
	from, to := s.todayWindow()
	return s.visits.VisitsInWindow(ctx, from, to)
}

func (s *Service) FollowUpsDue(ctx context.Context) ([]*visit.Visit, error) {
	from, to := FollowUpWindow(s.now())
	return s.visits.VisitsInWindow(ctx, from, to)
}

func (s *Service) PendingPrescriptions(ctx context.Context) ([]*prescription.Prescription, error) {
	from, to := s.todayWindow()
	return s.prescriptions.PendingInWindow(ctx, from, to)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	_, totalPatients, err := s.patients.ListPatients(ctx, 1, 0)
	if err != nil {
		return nil, err
	}

	today, err := s.TodayVisits(ctx)
	if err != nil {
		return nil, err
	}

	followUps, err := s.FollowUpsDue(ctx)
	if err != nil {
		return nil, err
	}

	from, to := s.todayWindow()
	pending, err := s.prescriptions.CountPendingInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalPatients:        totalPatients,
		TodayVisits:          len(today),
		FollowUpsDue:         len(followUps),
		PendingPrescriptions: pending,
	}, nil
}

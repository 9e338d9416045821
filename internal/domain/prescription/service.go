package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Service struct {
	repo   Repository
	notify func()
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) SetChangeNotifier(fn func()) {
	s.notify = fn
}

func (s *Service) notifyChanged() {
	if s.notify != nil {
		s.notify()
	}
}

// WritePrescription creates the visit's prescription or replaces the
// existing one. At most one prescription exists per visit.
func (s *Service) WritePrescription(ctx context.Context, p *Prescription) error {
	if p.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	now := time.Now().UnixMilli()
	p.CreatedAt = now
	p.UpdatedAt = now
	if ident, ok := auth.IdentityFromContext(ctx); ok && p.PrescribedBy == "" {
		p.PrescribedBy = ident.UID
		p.PrescribedByName = ident.DisplayName()
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPrescriptionByVisit(ctx context.Context, visitID uuid.UUID) (*Prescription, error) {
	return s.repo.GetByVisit(ctx, visitID)
}

func (s *Service) ListPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// PrescriptionIDsByPatient feeds the cascade deletion planner.
func (s *Service) PrescriptionIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListIDsByPatient(ctx, patientID)
}

func (s *Service) UpdatePrescription(ctx context.Context, id uuid.UUID, patch Patch) (*Prescription, error) {
	p, err := s.repo.Update(ctx, id, patch, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.notifyChanged()
	}
	return p, nil
}

// DeletePrescription removes by id; missing ids are a no-op.
func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}

// DeletePrescriptionRaw removes by id without firing the change notifier.
// The cascade deleter uses it so a patient teardown emits one snapshot, not
// one per record.
func (s *Service) DeletePrescriptionRaw(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// CountPendingInWindow counts prescriptions written in (from, to].
func (s *Service) CountPendingInWindow(ctx context.Context, from, to int64) (int, error) {
	return s.repo.CountCreatedInWindow(ctx, from, to)
}

// PendingInWindow lists prescriptions written in (from, to], newest first.
func (s *Service) PendingInWindow(ctx context.Context, from, to int64) ([]*Prescription, error) {
	return s.repo.ListCreatedInWindow(ctx, from, to)
}

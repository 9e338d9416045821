package exercise

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// CaseNoteProjector recomputes a patient's case note; attached so that
// plan writes refresh the projected exercise protocol.
type CaseNoteProjector interface {
	ProjectPatient(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	repo      Repository
	projector CaseNoteProjector
	notify    func()
	log       zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "exercise-service").Logger()}
}

func (s *Service) SetCaseNoteProjector(p CaseNoteProjector) {
	s.projector = p
}

func (s *Service) SetChangeNotifier(fn func()) {
	s.notify = fn
}

func (s *Service) afterWrite(ctx context.Context, patientID uuid.UUID) {
	if s.projector != nil {
		if err := s.projector.ProjectPatient(ctx, patientID); err != nil {
			s.log.Error().Err(err).
				Str("patient_id", patientID.String()).
				Msg("case-note projection failed")
		}
	}
	if s.notify != nil {
		s.notify()
	}
}

// WritePlan creates the visit's exercise plan or replaces the existing
// one. At most one plan exists per visit.
func (s *Service) WritePlan(ctx context.Context, p *Plan) error {
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
	s.afterWrite(ctx, p.PatientID)
	return nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPlanByVisit(ctx context.Context, visitID uuid.UUID) (*Plan, error) {
	return s.repo.GetByVisit(ctx, visitID)
}

func (s *Service) ListPlans(ctx context.Context, limit, offset int) ([]*Plan, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListPlansByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// PlanIDsByPatient feeds the cascade deletion planner.
func (s *Service) PlanIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListIDsByPatient(ctx, patientID)
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, patch Patch) (*Plan, error) {
	p, err := s.repo.Update(ctx, id, patch, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.afterWrite(ctx, p.PatientID)
	}
	return p, nil
}

// DeletePlan removes by id; missing ids are a no-op. A real removal
// reprojects the patient's case note.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if p != nil {
		s.afterWrite(ctx, p.PatientID)
	}
	return nil
}

// DeletePlanRaw removes by id without firing any hooks. The cascade
// deleter uses it; reprojecting there would race the case-note removal.
func (s *Service) DeletePlanRaw(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

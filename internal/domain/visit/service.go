package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// CaseNoteProjector recomputes a patient's case note from their latest
// visit. The case-note service provides the implementation; the hook is
// optional so the visit service stays usable without it.
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
	return &Service{repo: repo, log: log.With().Str("component", "visit-service").Logger()}
}

// SetCaseNoteProjector attaches the optional case-note projection hook,
// fired after every visit create, update and delete.
func (s *Service) SetCaseNoteProjector(p CaseNoteProjector) {
	s.projector = p
}

// SetChangeNotifier registers a callback fired after every successful write.
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

func validPainSeverity(p *int) bool {
	return p == nil || (*p >= 0 && *p <= 10)
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.ChiefComplaint == "" {
		return fmt.Errorf("chief_complaint is required")
	}
	if !validPainSeverity(v.PainSeverity) {
		return fmt.Errorf("pain_severity must be between 0 and 10")
	}
	now := time.Now().UnixMilli()
	if v.VisitDate == 0 {
		v.VisitDate = now
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	if ident, ok := auth.IdentityFromContext(ctx); ok {
		if v.AttendingStaff == "" {
			v.AttendingStaff = ident.UID
			v.AttendingStaffName = ident.DisplayName()
		}
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return err
	}
	s.afterWrite(ctx, v.PatientID)
	return nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// VisitIDsByPatient feeds the cascade deletion planner.
func (s *Service) VisitIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListIDsByPatient(ctx, patientID)
}

func (s *Service) LatestVisit(ctx context.Context, patientID uuid.UUID) (*Visit, error) {
	return s.repo.LatestByPatient(ctx, patientID)
}

// VisitsInWindow returns visits with visit_date in (from, to], newest first.
func (s *Service) VisitsInWindow(ctx context.Context, from, to int64) ([]*Visit, error) {
	return s.repo.ListByDateRange(ctx, from, to)
}

func (s *Service) UpdateVisit(ctx context.Context, id uuid.UUID, patch Patch) (*Visit, error) {
	if patch.ChiefComplaint != nil && *patch.ChiefComplaint == "" {
		return nil, fmt.Errorf("chief_complaint cannot be cleared")
	}
	if !validPainSeverity(patch.PainSeverity) {
		return nil, fmt.Errorf("pain_severity must be between 0 and 10")
	}
	v, err := s.repo.Update(ctx, id, patch, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if v != nil {
		s.afterWrite(ctx, v.PatientID)
	}
	return v, nil
}

// DeleteVisit removes the visit and reprojects the patient's case note from
// whatever visit is now the latest. Deleting a missing id is a no-op.
func (s *Service) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if v != nil {
		s.afterWrite(ctx, v.PatientID)
	}
	return nil
}

// DeleteVisitRaw deletes without the projection hook. The cascade deleter
// uses this: the patient's case note is deleted in the same plan, so
// reprojection would race its removal.
func (s *Service) DeleteVisitRaw(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

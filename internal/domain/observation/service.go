package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// CaseNoteProjector recomputes a patient's case note; attached so that
// observation writes refresh the projected diagnosis and plan.
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
	return &Service{repo: repo, log: log.With().Str("component", "observation-service").Logger()}
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

// RecordObservation creates the visit's observation or replaces the
// existing one. At most one observation exists per visit.
func (s *Service) RecordObservation(ctx context.Context, o *Observation) error {
	if o.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if o.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	now := time.Now().UnixMilli()
	o.CreatedAt = now
	o.UpdatedAt = now
	if ident, ok := auth.IdentityFromContext(ctx); ok && o.DoctorID == "" {
		o.DoctorID = ident.UID
		o.DoctorName = ident.DisplayName()
	}
	if err := s.repo.Upsert(ctx, o); err != nil {
		return err
	}
	s.afterWrite(ctx, o.PatientID)
	return nil
}

func (s *Service) GetObservation(ctx context.Context, id uuid.UUID) (*Observation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetObservationByVisit(ctx context.Context, visitID uuid.UUID) (*Observation, error) {
	return s.repo.GetByVisit(ctx, visitID)
}

func (s *Service) ListObservations(ctx context.Context, limit, offset int) ([]*Observation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListObservationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ObservationIDsByPatient feeds the cascade deletion planner.
func (s *Service) ObservationIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListIDsByPatient(ctx, patientID)
}

func (s *Service) UpdateObservation(ctx context.Context, id uuid.UUID, patch Patch) (*Observation, error) {
	o, err := s.repo.Update(ctx, id, patch, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if o != nil {
		s.afterWrite(ctx, o.PatientID)
	}
	return o, nil
}

// DeleteObservation removes by id; missing ids are a no-op. Used by the
// cascade deleter, so it skips the projection hook.
func (s *Service) DeleteObservation(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

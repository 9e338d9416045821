package casenote

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/exercise"
	"github.com/clinicdesk/clinicdesk/internal/domain/observation"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Sources the projection reads from. Narrow interfaces so tests can
// stub each one independently.
type PatientSource interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type VisitSource interface {
	LatestVisit(ctx context.Context, patientID uuid.UUID) (*visit.Visit, error)
}

type ObservationSource interface {
	GetObservationByVisit(ctx context.Context, visitID uuid.UUID) (*observation.Observation, error)
}

type PlanSource interface {
	GetPlanByVisit(ctx context.Context, visitID uuid.UUID) (*exercise.Plan, error)
}

type Service struct {
	repo         Repository
	patients     PatientSource
	visits       VisitSource
	observations ObservationSource
	plans        PlanSource
	notify       func()
}

func NewService(repo Repository, patients PatientSource, visits VisitSource, observations ObservationSource, plans PlanSource) *Service {
	return &Service{
		repo:         repo,
		patients:     patients,
		visits:       visits,
		observations: observations,
		plans:        plans,
	}
}

func (s *Service) SetChangeNotifier(fn func()) {
	s.notify = fn
}

func (s *Service) notifyChanged() {
	if s.notify != nil {
		s.notify()
	}
}

// ProjectPatient recomputes the patient's case note from the latest
// visit, its observation, and its exercise plan. When no visits remain
// the note is removed. At most one note exists per patient.
func (s *Service) ProjectPatient(ctx context.Context, patientID uuid.UUID) error {
	latest, err := s.visits.LatestVisit(ctx, patientID)
	if err != nil {
		return err
	}
	if latest == nil {
		if err := s.repo.DeleteByPatient(ctx, patientID); err != nil {
			return err
		}
		s.notifyChanged()
		return nil
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	n := &CaseNote{
		PatientID: patientID,
		Date:      latest.VisitDate,
		Complaint: latest.ChiefComplaint,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p != nil {
		n.PatientName = p.FullName
	} else {
		n.PatientName = latest.PatientName
	}
	if ident, ok := auth.IdentityFromContext(ctx); ok {
		n.CreatedBy = ident.UID
		n.CreatedByName = ident.DisplayName()
		n.UpdatedBy = ident.UID
		n.UpdatedByName = ident.DisplayName()
	}

	obs, err := s.observations.GetObservationByVisit(ctx, latest.ID)
	if err != nil {
		return err
	}
	if obs != nil {
		n.Diagnosis = obs.Diagnosis
		n.Precautions = obs.WarningsAndPrecautions
		n.RxPlan = obs.TreatmentPlan
		n.MRIFinding, n.XRayFinding = splitImagingFindings(obs.ExaminationFindings)
	}

	plan, err := s.plans.GetPlanByVisit(ctx, latest.ID)
	if err != nil {
		return err
	}
	if plan != nil && len(plan.Exercises) > 0 {
		n.ExerciseProtocol = plan.Exercises[0].Name
	}

	if err := s.repo.Upsert(ctx, n); err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}

// splitImagingFindings pulls the "MRI:" and "X-ray:" lines out of the
// combined examination findings text.
func splitImagingFindings(findings string) (mri, xray string) {
	for _, line := range strings.Split(findings, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "MRI:"):
			mri = strings.TrimSpace(strings.TrimPrefix(line, "MRI:"))
		case strings.HasPrefix(line, "X-ray:"):
			xray = strings.TrimSpace(strings.TrimPrefix(line, "X-ray:"))
		}
	}
	return mri, xray
}

func (s *Service) GetCaseNoteByPatient(ctx context.Context, patientID uuid.UUID) (*CaseNote, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

func (s *Service) ListCaseNotes(ctx context.Context, limit, offset int) ([]*CaseNote, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// CaseNoteIDsByPatient feeds the cascade deletion planner.
func (s *Service) CaseNoteIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListIDsByPatient(ctx, patientID)
}

// DeleteCaseNote removes by id; missing ids are a no-op. Used by the
// cascade deleter.
func (s *Service) DeleteCaseNote(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Service struct {
	repo    Repository
	deleter *Deleter
	notify  func()
}

func NewService(repo Repository, deleter *Deleter) *Service {
	return &Service{repo: repo, deleter: deleter}
}

// SetChangeNotifier registers a callback fired after every successful write,
// used to wake the realtime patients feed.
func (s *Service) SetChangeNotifier(fn func()) {
	s.notify = fn
}

func (s *Service) notifyChanged() {
	if s.notify != nil {
		s.notify()
	}
}

func stampFrom(ctx context.Context) AuditStamp {
	stamp := AuditStamp{At: time.Now().UnixMilli()}
	if ident, ok := auth.IdentityFromContext(ctx); ok {
		stamp.By = ident.UID
		stamp.ByName = ident.DisplayName()
	}
	return stamp
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	stamp := stampFrom(ctx)
	p.CreatedBy = stamp.By
	p.CreatedByName = stamp.ByName
	p.CreatedAt = stamp.At
	p.UpdatedBy = stamp.By
	p.UpdatedByName = stamp.ByName
	p.UpdatedAt = stamp.At
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if query == "" {
		return s.repo.List(ctx, limit, offset)
	}
	return s.repo.Search(ctx, query, limit, offset)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, patch Patch) (*Patient, error) {
	if patch.FullName != nil && *patch.FullName == "" {
		return nil, fmt.Errorf("full_name cannot be cleared")
	}
	p, err := s.repo.Update(ctx, id, patch, stampFrom(ctx))
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.notifyChanged()
	}
	return p, nil
}

// MarkAttendance sets or clears the attendance status for a date key.
// A nil status removes the key.
func (s *Service) MarkAttendance(ctx context.Context, id uuid.UUID, date string, status *string) (*Patient, error) {
	if date == "" {
		return nil, fmt.Errorf("date is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD")
	}
	if status != nil && *status != AttendancePresent && *status != AttendanceAbsent {
		return nil, fmt.Errorf("status must be %q or %q", AttendancePresent, AttendanceAbsent)
	}
	p, err := s.repo.SetAttendance(ctx, id, date, status, stampFrom(ctx))
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.notifyChanged()
	}
	return p, nil
}

// DeletePatient runs the cascade saga and reports per-step outcomes.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) ([]StepResult, error) {
	results, err := s.deleter.DeletePatient(ctx, id)
	if len(results) > 0 {
		s.notifyChanged()
	}
	return results, err
}

// RepairDeletion re-plans and re-executes a cascade for a patient whose
// earlier deletion partially failed. Steps are idempotent, so records
// already gone are re-deleted harmlessly.
func (s *Service) RepairDeletion(ctx context.Context, id uuid.UUID) ([]StepResult, error) {
	return s.DeletePatient(ctx, id)
}

package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Visit, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
	// LatestByPatient returns the patient's most recent visit, nil if none.
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Visit, error)
	// ListByDateRange returns visits with visit_date in (from, to], newest
	// first. Used by the dashboard windows.
	ListByDateRange(ctx context.Context, from, to int64) ([]*Visit, error)
}

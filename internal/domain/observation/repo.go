package observation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the observation or, when the visit already has one,
	// updates it in place. The stored row is written back to o.
	Upsert(ctx context.Context, o *Observation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Observation, error)
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*Observation, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Observation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Observation, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error)
	ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}

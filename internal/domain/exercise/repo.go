package exercise

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the plan or, when the visit already has one,
	// updates it in place. The stored row is written back to p.
	Upsert(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*Plan, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Plan, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Plan, int, error)
	ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}

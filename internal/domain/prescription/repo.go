package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the prescription or, when the visit already has
	// one, updates it in place. The stored row is written back to p.
	Upsert(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Prescription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
	// CountCreatedInWindow counts prescriptions with created_at in
	// (from, to], for the pending-today dashboard card.
	CountCreatedInWindow(ctx context.Context, from, to int64) (int, error)
	// ListCreatedInWindow returns prescriptions with created_at in
	// (from, to], newest first.
	ListCreatedInWindow(ctx context.Context, from, to int64) ([]*Prescription, error)
}

package casenote

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the note or, when the patient already has one,
	// updates it in place. The stored row is written back to n.
	Upsert(ctx context.Context, n *CaseNote) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*CaseNote, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*CaseNote, int, error)
	ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}

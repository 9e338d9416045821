package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch, stamp AuditStamp) (*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	SetAttendance(ctx context.Context, id uuid.UUID, date string, status *string, stamp AuditStamp) (*Patient, error)
}

// AuditStamp carries the who/when applied to every write.
type AuditStamp struct {
	By     string
	ByName string
	At     int64
}

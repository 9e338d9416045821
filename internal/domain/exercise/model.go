package exercise

import (
	"github.com/google/uuid"
)

// Exercise is one entry of a plan, stored inside the exercises JSONB
// column.
type Exercise struct {
	Name        string `json:"name"`
	Repetitions string `json:"repetitions,omitempty"`
	Sets        string `json:"sets,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

// Plan maps to the exercise_plans table. Each visit carries at most one
// plan; writes for an existing visit update it in place.
type Plan struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	VisitID          uuid.UUID  `db:"visit_id" json:"visit_id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName      string     `db:"patient_name" json:"patient_name,omitempty"`
	Exercises        []Exercise `db:"exercises" json:"exercises"`
	PrescribedBy     string     `db:"prescribed_by" json:"prescribed_by,omitempty"`
	PrescribedByName string     `db:"prescribed_by_name" json:"prescribed_by_name,omitempty"`
	CreatedAt        int64      `db:"created_at" json:"created_at"`
	UpdatedAt        int64      `db:"updated_at" json:"updated_at"`
}

// Patch is a partial plan update. Nil fields are left untouched; the
// exercises list is replaced whole when present.
type Patch struct {
	PatientName *string     `json:"patient_name,omitempty"`
	Exercises   *[]Exercise `json:"exercises,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p Patch) IsEmpty() bool {
	return p.PatientName == nil && p.Exercises == nil
}

package prescription

import (
	"github.com/google/uuid"
)

// Medicine is one line of a prescription, stored inside the medicines
// JSONB column.
type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription maps to the prescriptions table. Each visit carries at most
// one prescription; writes for an existing visit update it in place.
type Prescription struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	VisitID          uuid.UUID  `db:"visit_id" json:"visit_id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName      string     `db:"patient_name" json:"patient_name,omitempty"`
	Medicines        []Medicine `db:"medicines" json:"medicines"`
	PrescribedBy     string     `db:"prescribed_by" json:"prescribed_by,omitempty"`
	PrescribedByName string     `db:"prescribed_by_name" json:"prescribed_by_name,omitempty"`
	CreatedAt        int64      `db:"created_at" json:"created_at"`
	UpdatedAt        int64      `db:"updated_at" json:"updated_at"`
}

// Patch is a partial prescription update. Nil fields are left untouched;
// the medicines list is replaced whole when present.
type Patch struct {
	PatientName *string     `json:"patient_name,omitempty"`
	Medicines   *[]Medicine `json:"medicines,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p Patch) IsEmpty() bool {
	return p.PatientName == nil && p.Medicines == nil
}

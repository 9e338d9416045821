package observation

import (
	"github.com/google/uuid"
)

// Observation maps to the doctor_observations table. Each visit carries at
// most one observation; writes for an existing visit update it in place.
type Observation struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	VisitID                uuid.UUID `db:"visit_id" json:"visit_id"`
	PatientID              uuid.UUID `db:"patient_id" json:"patient_id"`
	ExaminationFindings    string    `db:"examination_findings" json:"examination_findings,omitempty"`
	Diagnosis              string    `db:"diagnosis" json:"diagnosis,omitempty"`
	TreatmentPlan          string    `db:"treatment_plan" json:"treatment_plan,omitempty"`
	EstimatedRecoveryTime  string    `db:"estimated_recovery_time" json:"estimated_recovery_time,omitempty"`
	WarningsAndPrecautions string    `db:"warnings_and_precautions" json:"warnings_and_precautions,omitempty"`
	DoctorNotes            string    `db:"doctor_notes" json:"doctor_notes,omitempty"`
	DoctorID               string    `db:"doctor_id" json:"doctor_id,omitempty"`
	DoctorName             string    `db:"doctor_name" json:"doctor_name,omitempty"`
	CreatedAt              int64     `db:"created_at" json:"created_at"`
	UpdatedAt              int64     `db:"updated_at" json:"updated_at"`
}

// Patch is a partial observation update. Nil fields are left untouched.
type Patch struct {
	ExaminationFindings    *string `json:"examination_findings,omitempty"`
	Diagnosis              *string `json:"diagnosis,omitempty"`
	TreatmentPlan          *string `json:"treatment_plan,omitempty"`
	EstimatedRecoveryTime  *string `json:"estimated_recovery_time,omitempty"`
	WarningsAndPrecautions *string `json:"warnings_and_precautions,omitempty"`
	DoctorNotes            *string `json:"doctor_notes,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p Patch) IsEmpty() bool {
	return p.ExaminationFindings == nil && p.Diagnosis == nil && p.TreatmentPlan == nil &&
		p.EstimatedRecoveryTime == nil && p.WarningsAndPrecautions == nil && p.DoctorNotes == nil
}

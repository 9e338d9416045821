package casenote

import (
	"github.com/google/uuid"
)

// CaseNote is a denormalized summary of a patient's most recent visit,
// kept to make patient list views a single read. Each patient has at
// most one note; writes upsert on patient_id.
type CaseNote struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName      string    `db:"patient_name" json:"patient_name,omitempty"`
	Date             int64     `db:"date" json:"date"`
	Complaint        string    `db:"complaint" json:"complaint,omitempty"`
	Diagnosis        string    `db:"diagnosis" json:"diagnosis,omitempty"`
	MRIFinding       string    `db:"mri_finding" json:"mri_finding,omitempty"`
	XRayFinding      string    `db:"xray_finding" json:"xray_finding,omitempty"`
	Precautions      string    `db:"precautions" json:"precautions,omitempty"`
	RxPlan           string    `db:"rx_plan" json:"rx_plan,omitempty"`
	ExerciseProtocol string    `db:"exercise_protocol" json:"exercise_protocol,omitempty"`
	CreatedBy        string    `db:"created_by" json:"created_by,omitempty"`
	CreatedByName    string    `db:"created_by_name" json:"created_by_name,omitempty"`
	CreatedAt        int64     `db:"created_at" json:"created_at"`
	UpdatedBy        string    `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedByName    string    `db:"updated_by_name" json:"updated_by_name,omitempty"`
	UpdatedAt        int64     `db:"updated_at" json:"updated_at"`
}

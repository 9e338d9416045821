package visit

import (
	"github.com/google/uuid"
)

// Visit maps to the visits table. visit_date and the audit timestamps are
// application-set epoch milliseconds. patient_name and attending_staff_name
// are denormalized for display.
type Visit struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName        string    `db:"patient_name" json:"patient_name,omitempty"`
	VisitDate          int64     `db:"visit_date" json:"visit_date"`
	ChiefComplaint     string    `db:"chief_complaint" json:"chief_complaint"`
	DurationOfProblem  string    `db:"duration_of_problem" json:"duration_of_problem,omitempty"`
	PreviousTreatment  string    `db:"previous_treatment" json:"previous_treatment,omitempty"`
	PainSeverity       *int      `db:"pain_severity" json:"pain_severity,omitempty"`
	VisitNotes         string    `db:"visit_notes" json:"visit_notes,omitempty"`
	AttendingStaff     string    `db:"attending_staff" json:"attending_staff,omitempty"`
	AttendingStaffName string    `db:"attending_staff_name" json:"attending_staff_name,omitempty"`
	CreatedAt          int64     `db:"created_at" json:"created_at"`
	UpdatedAt          int64     `db:"updated_at" json:"updated_at"`
}

// Patch is a partial visit update. Nil fields are left untouched.
type Patch struct {
	PatientName       *string `json:"patient_name,omitempty"`
	VisitDate         *int64  `json:"visit_date,omitempty"`
	ChiefComplaint    *string `json:"chief_complaint,omitempty"`
	DurationOfProblem *string `json:"duration_of_problem,omitempty"`
	PreviousTreatment *string `json:"previous_treatment,omitempty"`
	PainSeverity      *int    `json:"pain_severity,omitempty"`
	VisitNotes        *string `json:"visit_notes,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p Patch) IsEmpty() bool {
	return p.PatientName == nil && p.VisitDate == nil && p.ChiefComplaint == nil &&
		p.DurationOfProblem == nil && p.PreviousTreatment == nil &&
		p.PainSeverity == nil && p.VisitNotes == nil
}

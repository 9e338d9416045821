package patient

import (
	"github.com/google/uuid"
)

// TreatmentPlan is the nested therapy document stored as JSONB. It is
// replaced whole on update; entries are free-text therapy names.
type TreatmentPlan struct {
	ElectroTherapy  []string `json:"electroTherapy"`
	ExerciseTherapy []string `json:"exerciseTherapy"`
}

// Attendance statuses for a calendar-date key.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// Patient maps to the patients table. Timestamps are application-set epoch
// milliseconds. Attendance keys are YYYY-MM-DD dates.
type Patient struct {
	ID                       uuid.UUID         `db:"id" json:"id"`
	FullName                 string            `db:"full_name" json:"full_name"`
	PhoneNumber              string            `db:"phone_number" json:"phone_number,omitempty"`
	Email                    string            `db:"email" json:"email,omitempty"`
	Address                  string            `db:"address" json:"address,omitempty"`
	Age                      *int              `db:"age" json:"age,omitempty"`
	DateOfBirth              string            `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                   string            `db:"gender" json:"gender,omitempty"`
	EmergencyContact         string            `db:"emergency_contact" json:"emergency_contact,omitempty"`
	MedicalHistory           string            `db:"medical_history" json:"medical_history,omitempty"`
	CurrentMedications       string            `db:"current_medications" json:"current_medications,omitempty"`
	Complaint                string            `db:"complaint" json:"complaint,omitempty"`
	Investigation            string            `db:"investigation" json:"investigation,omitempty"`
	Diagnosis                string            `db:"diagnosis" json:"diagnosis,omitempty"`
	Precautions              string            `db:"precautions" json:"precautions,omitempty"`
	TreatmentPlan            TreatmentPlan     `db:"treatment_plan" json:"treatment_plan"`
	Attendance               map[string]string `db:"attendance" json:"attendance"`
	AttendancePaymentDetails string            `db:"attendance_payment_details" json:"attendance_payment_details,omitempty"`
	CreatedBy                string            `db:"created_by" json:"created_by,omitempty"`
	CreatedByName            string            `db:"created_by_name" json:"created_by_name,omitempty"`
	CreatedAt                int64             `db:"created_at" json:"created_at"`
	UpdatedBy                string            `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedByName            string            `db:"updated_by_name" json:"updated_by_name,omitempty"`
	UpdatedAt                int64             `db:"updated_at" json:"updated_at"`
}

// Patch is a partial update at top-level field granularity. Nil fields are
// left untouched; the treatment plan is replaced whole when set.
type Patch struct {
	FullName                 *string            `json:"full_name,omitempty"`
	PhoneNumber              *string            `json:"phone_number,omitempty"`
	Email                    *string            `json:"email,omitempty"`
	Address                  *string            `json:"address,omitempty"`
	Age                      *int               `json:"age,omitempty"`
	DateOfBirth              *string            `json:"date_of_birth,omitempty"`
	Gender                   *string            `json:"gender,omitempty"`
	EmergencyContact         *string            `json:"emergency_contact,omitempty"`
	MedicalHistory           *string            `json:"medical_history,omitempty"`
	CurrentMedications       *string            `json:"current_medications,omitempty"`
	Complaint                *string            `json:"complaint,omitempty"`
	Investigation            *string            `json:"investigation,omitempty"`
	Diagnosis                *string            `json:"diagnosis,omitempty"`
	Precautions              *string            `json:"precautions,omitempty"`
	TreatmentPlan            *TreatmentPlan     `json:"treatment_plan,omitempty"`
	Attendance               *map[string]string `json:"attendance,omitempty"`
	AttendancePaymentDetails *string            `json:"attendance_payment_details,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p Patch) IsEmpty() bool {
	return p.FullName == nil && p.PhoneNumber == nil && p.Email == nil &&
		p.Address == nil && p.Age == nil && p.DateOfBirth == nil &&
		p.Gender == nil && p.EmergencyContact == nil && p.MedicalHistory == nil &&
		p.CurrentMedications == nil && p.Complaint == nil && p.Investigation == nil &&
		p.Diagnosis == nil && p.Precautions == nil && p.TreatmentPlan == nil &&
		p.Attendance == nil && p.AttendancePaymentDetails == nil
}

package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, full_name, phone_number, email, address, age, date_of_birth, gender,
	emergency_contact, medical_history, current_medications, complaint, investigation,
	diagnosis, precautions, treatment_plan, attendance, attendance_payment_details,
	created_by, created_by_name, created_at, updated_by, updated_by_name, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Attendance == nil {
		p.Attendance = map[string]string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (
			id, full_name, phone_number, email, address, age, date_of_birth, gender,
			emergency_contact, medical_history, current_medications, complaint, investigation,
			diagnosis, precautions, treatment_plan, attendance, attendance_payment_details,
			created_by, created_by_name, created_at, updated_by, updated_by_name, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,
			$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24
		)`,
		p.ID, p.FullName, p.PhoneNumber, p.Email, p.Address, p.Age, p.DateOfBirth, p.Gender,
		p.EmergencyContact, p.MedicalHistory, p.CurrentMedications, p.Complaint, p.Investigation,
		p.Diagnosis, p.Precautions, p.TreatmentPlan, p.Attendance, p.AttendancePaymentDetails,
		p.CreatedBy, p.CreatedByName, p.CreatedAt, p.UpdatedBy, p.UpdatedByName, p.UpdatedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch Patch, stamp AuditStamp) (*Patient, error) {
	var sets []string
	args := []interface{}{id}
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.FullName != nil {
		set("full_name", *patch.FullName)
	}
	if patch.PhoneNumber != nil {
		set("phone_number", *patch.PhoneNumber)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Address != nil {
		set("address", *patch.Address)
	}
	if patch.Age != nil {
		set("age", *patch.Age)
	}
	if patch.DateOfBirth != nil {
		set("date_of_birth", *patch.DateOfBirth)
	}
	if patch.Gender != nil {
		set("gender", *patch.Gender)
	}
	if patch.EmergencyContact != nil {
		set("emergency_contact", *patch.EmergencyContact)
	}
	if patch.MedicalHistory != nil {
		set("medical_history", *patch.MedicalHistory)
	}
	if patch.CurrentMedications != nil {
		set("current_medications", *patch.CurrentMedications)
	}
	if patch.Complaint != nil {
		set("complaint", *patch.Complaint)
	}
	if patch.Investigation != nil {
		set("investigation", *patch.Investigation)
	}
	if patch.Diagnosis != nil {
		set("diagnosis", *patch.Diagnosis)
	}
	if patch.Precautions != nil {
		set("precautions", *patch.Precautions)
	}
	if patch.TreatmentPlan != nil {
		set("treatment_plan", *patch.TreatmentPlan)
	}
	if patch.Attendance != nil {
		set("attendance", *patch.Attendance)
	}
	if patch.AttendancePaymentDetails != nil {
		set("attendance_payment_details", *patch.AttendancePaymentDetails)
	}

	set("updated_by", stamp.By)
	set("updated_by_name", stamp.ByName)
	set("updated_at", stamp.At)

	query := `UPDATE patients SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + patientCols
	p, err := scanPatient(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	where := `lower(full_name) LIKE $1 OR phone_number LIKE $1`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE `+where, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE `+where+
			` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) SetAttendance(ctx context.Context, id uuid.UUID, date string, status *string, stamp AuditStamp) (*Patient, error) {
	var row pgx.Row
	if status != nil {
		row = r.pool.QueryRow(ctx, `
			UPDATE patients SET
				attendance = jsonb_set(attendance, ARRAY[$2], to_jsonb($3::text)),
				updated_by = $4, updated_by_name = $5, updated_at = $6
			WHERE id = $1 RETURNING `+patientCols,
			id, date, *status, stamp.By, stamp.ByName, stamp.At)
	} else {
		row = r.pool.QueryRow(ctx, `
			UPDATE patients SET
				attendance = attendance - $2,
				updated_by = $3, updated_by_name = $4, updated_at = $5
			WHERE id = $1 RETURNING `+patientCols,
			id, date, stamp.By, stamp.ByName, stamp.At)
	}
	p, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FullName, &p.PhoneNumber, &p.Email, &p.Address, &p.Age, &p.DateOfBirth, &p.Gender,
		&p.EmergencyContact, &p.MedicalHistory, &p.CurrentMedications, &p.Complaint, &p.Investigation,
		&p.Diagnosis, &p.Precautions, &p.TreatmentPlan, &p.Attendance, &p.AttendancePaymentDetails,
		&p.CreatedBy, &p.CreatedByName, &p.CreatedAt, &p.UpdatedBy, &p.UpdatedByName, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

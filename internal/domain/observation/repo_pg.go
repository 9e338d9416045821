package observation

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

const obsCols = `id, visit_id, patient_id, examination_findings, diagnosis, treatment_plan,
	estimated_recovery_time, warnings_and_precautions, doctor_notes,
	doctor_id, doctor_name, created_at, updated_at`

func (r *repoPG) Upsert(ctx context.Context, o *Observation) error {
	o.ID = uuid.New()
	// ON CONFLICT keeps the original id and created_at so the one-per-visit
	// row is stable across repeated writes.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctor_observations (
			id, visit_id, patient_id, examination_findings, diagnosis, treatment_plan,
			estimated_recovery_time, warnings_and_precautions, doctor_notes,
			doctor_id, doctor_name, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (visit_id) DO UPDATE SET
			examination_findings = EXCLUDED.examination_findings,
			diagnosis = EXCLUDED.diagnosis,
			treatment_plan = EXCLUDED.treatment_plan,
			estimated_recovery_time = EXCLUDED.estimated_recovery_time,
			warnings_and_precautions = EXCLUDED.warnings_and_precautions,
			doctor_notes = EXCLUDED.doctor_notes,
			doctor_id = EXCLUDED.doctor_id,
			doctor_name = EXCLUDED.doctor_name,
			updated_at = EXCLUDED.updated_at
		RETURNING `+obsCols,
		o.ID, o.VisitID, o.PatientID, o.ExaminationFindings, o.Diagnosis, o.TreatmentPlan,
		o.EstimatedRecoveryTime, o.WarningsAndPrecautions, o.DoctorNotes,
		o.DoctorID, o.DoctorName, o.CreatedAt, o.UpdatedAt,
	)
	stored, err := scanObs(row)
	if err != nil {
		return err
	}
	*o = *stored
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Observation, error) {
	o, err := scanObs(r.pool.QueryRow(ctx, `SELECT `+obsCols+` FROM doctor_observations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *repoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*Observation, error) {
	o, err := scanObs(r.pool.QueryRow(ctx, `SELECT `+obsCols+` FROM doctor_observations WHERE visit_id = $1`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Observation, error) {
	var sets []string
	args := []interface{}{id}
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.ExaminationFindings != nil {
		set("examination_findings", *patch.ExaminationFindings)
	}
	if patch.Diagnosis != nil {
		set("diagnosis", *patch.Diagnosis)
	}
	if patch.TreatmentPlan != nil {
		set("treatment_plan", *patch.TreatmentPlan)
	}
	if patch.EstimatedRecoveryTime != nil {
		set("estimated_recovery_time", *patch.EstimatedRecoveryTime)
	}
	if patch.WarningsAndPrecautions != nil {
		set("warnings_and_precautions", *patch.WarningsAndPrecautions)
	}
	if patch.DoctorNotes != nil {
		set("doctor_notes", *patch.DoctorNotes)
	}
	set("updated_at", now)

	query := `UPDATE doctor_observations SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + obsCols
	o, err := scanObs(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM doctor_observations WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Observation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctor_observations`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+obsCols+` FROM doctor_observations ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var obs []*Observation
	for rows.Next() {
		o, err := scanObs(rows)
		if err != nil {
			return nil, 0, err
		}
		obs = append(obs, o)
	}
	return obs, total, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctor_observations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+obsCols+` FROM doctor_observations WHERE patient_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var obs []*Observation
	for rows.Next() {
		o, err := scanObs(rows)
		if err != nil {
			return nil, 0, err
		}
		obs = append(obs, o)
	}
	return obs, total, rows.Err()
}

func (r *repoPG) ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM doctor_observations WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanObs(row pgx.Row) (*Observation, error) {
	var o Observation
	err := row.Scan(
		&o.ID, &o.VisitID, &o.PatientID, &o.ExaminationFindings, &o.Diagnosis, &o.TreatmentPlan,
		&o.EstimatedRecoveryTime, &o.WarningsAndPrecautions, &o.DoctorNotes,
		&o.DoctorID, &o.DoctorName, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

package casenote

import (
	"context"
	"errors"

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

const noteCols = `id, patient_id, patient_name, date, complaint, diagnosis,
	mri_finding, xray_finding, precautions, rx_plan, exercise_protocol,
	created_by, created_by_name, created_at, updated_by, updated_by_name, updated_at`

func (r *repoPG) Upsert(ctx context.Context, n *CaseNote) error {
	n.ID = uuid.New()
	// ON CONFLICT keeps the original id and created-by audit so the
	// one-per-patient row is stable across reprojections.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO case_notes (
			id, patient_id, patient_name, date, complaint, diagnosis,
			mri_finding, xray_finding, precautions, rx_plan, exercise_protocol,
			created_by, created_by_name, created_at, updated_by, updated_by_name, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (patient_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			date = EXCLUDED.date,
			complaint = EXCLUDED.complaint,
			diagnosis = EXCLUDED.diagnosis,
			mri_finding = EXCLUDED.mri_finding,
			xray_finding = EXCLUDED.xray_finding,
			precautions = EXCLUDED.precautions,
			rx_plan = EXCLUDED.rx_plan,
			exercise_protocol = EXCLUDED.exercise_protocol,
			updated_by = EXCLUDED.updated_by,
			updated_by_name = EXCLUDED.updated_by_name,
			updated_at = EXCLUDED.updated_at
		RETURNING `+noteCols,
		n.ID, n.PatientID, n.PatientName, n.Date, n.Complaint, n.Diagnosis,
		n.MRIFinding, n.XRayFinding, n.Precautions, n.RxPlan, n.ExerciseProtocol,
		n.CreatedBy, n.CreatedByName, n.CreatedAt, n.UpdatedBy, n.UpdatedByName, n.UpdatedAt,
	)
	stored, err := scanNote(row)
	if err != nil {
		return err
	}
	*n = *stored
	return nil
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*CaseNote, error) {
	n, err := scanNote(r.pool.QueryRow(ctx, `SELECT `+noteCols+` FROM case_notes WHERE patient_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM case_notes WHERE id = $1`, id)
	return err
}

func (r *repoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM case_notes WHERE patient_id = $1`, patientID)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*CaseNote, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM case_notes`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+noteCols+` FROM case_notes ORDER BY date DESC, created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []*CaseNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, n)
	}
	return notes, total, rows.Err()
}

func (r *repoPG) ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM case_notes WHERE patient_id = $1`, patientID)
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

func scanNote(row pgx.Row) (*CaseNote, error) {
	var n CaseNote
	err := row.Scan(
		&n.ID, &n.PatientID, &n.PatientName, &n.Date, &n.Complaint, &n.Diagnosis,
		&n.MRIFinding, &n.XRayFinding, &n.Precautions, &n.RxPlan, &n.ExerciseProtocol,
		&n.CreatedBy, &n.CreatedByName, &n.CreatedAt, &n.UpdatedBy, &n.UpdatedByName, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

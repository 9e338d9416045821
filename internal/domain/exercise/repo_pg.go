package exercise

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

const planCols = `id, visit_id, patient_id, patient_name, exercises,
	prescribed_by, prescribed_by_name, created_at, updated_at`

func (r *repoPG) Upsert(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	if p.Exercises == nil {
		p.Exercises = []Exercise{}
	}
	// ON CONFLICT keeps the original id and created_at so the one-per-visit
	// row is stable across repeated writes.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO exercise_plans (
			id, visit_id, patient_id, patient_name, exercises,
			prescribed_by, prescribed_by_name, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (visit_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			exercises = EXCLUDED.exercises,
			prescribed_by = EXCLUDED.prescribed_by,
			prescribed_by_name = EXCLUDED.prescribed_by_name,
			updated_at = EXCLUDED.updated_at
		RETURNING `+planCols,
		p.ID, p.VisitID, p.PatientID, p.PatientName, p.Exercises,
		p.PrescribedBy, p.PrescribedByName, p.CreatedAt, p.UpdatedAt,
	)
	stored, err := scanPlan(row)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := scanPlan(r.pool.QueryRow(ctx, `SELECT `+planCols+` FROM exercise_plans WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*Plan, error) {
	p, err := scanPlan(r.pool.QueryRow(ctx, `SELECT `+planCols+` FROM exercise_plans WHERE visit_id = $1`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Plan, error) {
	var sets []string
	args := []interface{}{id}
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.PatientName != nil {
		set("patient_name", *patch.PatientName)
	}
	if patch.Exercises != nil {
		set("exercises", *patch.Exercises)
	}
	set("updated_at", now)

	query := `UPDATE exercise_plans SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + planCols
	p, err := scanPlan(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exercise_plans WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Plan, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exercise_plans`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+planCols+` FROM exercise_plans ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, p)
	}
	return plans, total, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exercise_plans WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+planCols+` FROM exercise_plans WHERE patient_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, p)
	}
	return plans, total, rows.Err()
}

func (r *repoPG) ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM exercise_plans WHERE patient_id = $1`, patientID)
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

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(
		&p.ID, &p.VisitID, &p.PatientID, &p.PatientName, &p.Exercises,
		&p.PrescribedBy, &p.PrescribedByName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

package prescription

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

const rxCols = `id, visit_id, patient_id, patient_name, medicines,
	prescribed_by, prescribed_by_name, created_at, updated_at`

func (r *repoPG) Upsert(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	if p.Medicines == nil {
		p.Medicines = []Medicine{}
	}
	// ON CONFLICT keeps the original id and created_at so the one-per-visit
	// row is stable across repeated writes.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (
			id, visit_id, patient_id, patient_name, medicines,
			prescribed_by, prescribed_by_name, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (visit_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			medicines = EXCLUDED.medicines,
			prescribed_by = EXCLUDED.prescribed_by,
			prescribed_by_name = EXCLUDED.prescribed_by_name,
			updated_at = EXCLUDED.updated_at
		RETURNING `+rxCols,
		p.ID, p.VisitID, p.PatientID, p.PatientName, p.Medicines,
		p.PrescribedBy, p.PrescribedByName, p.CreatedAt, p.UpdatedAt,
	)
	stored, err := scanRx(row)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanRx(r.pool.QueryRow(ctx, `SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*Prescription, error) {
	p, err := scanRx(r.pool.QueryRow(ctx, `SELECT `+rxCols+` FROM prescriptions WHERE visit_id = $1`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Prescription, error) {
	var sets []string
	args := []interface{}{id}
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.PatientName != nil {
		set("patient_name", *patch.PatientName)
	}
	if patch.Medicines != nil {
		set("medicines", *patch.Medicines)
	}
	set("updated_at", now)

	query := `UPDATE prescriptions SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + rxCols
	p, err := scanRx(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collectRx(rows)
	return out, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE patient_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collectRx(rows)
	return out, total, err
}

func (r *repoPG) ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM prescriptions WHERE patient_id = $1`, patientID)
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

func (r *repoPG) CountCreatedInWindow(ctx context.Context, from, to int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM prescriptions WHERE created_at > $1 AND created_at <= $2`,
		from, to).Scan(&n)
	return n, err
}

func (r *repoPG) ListCreatedInWindow(ctx context.Context, from, to int64) ([]*Prescription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE created_at > $1 AND created_at <= $2 ORDER BY created_at DESC, id`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRx(rows)
}

func collectRx(rows pgx.Rows) ([]*Prescription, error) {
	var out []*Prescription
	for rows.Next() {
		p, err := scanRx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanRx(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID, &p.VisitID, &p.PatientID, &p.PatientName, &p.Medicines,
		&p.PrescribedBy, &p.PrescribedByName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

package visit

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

const visitCols = `id, patient_id, patient_name, visit_date, chief_complaint,
	duration_of_problem, previous_treatment, pain_severity, visit_notes,
	attending_staff, attending_staff_name, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO visits (
			id, patient_id, patient_name, visit_date, chief_complaint,
			duration_of_problem, previous_treatment, pain_severity, visit_notes,
			attending_staff, attending_staff_name, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		v.ID, v.PatientID, v.PatientName, v.VisitDate, v.ChiefComplaint,
		v.DurationOfProblem, v.PreviousTreatment, v.PainSeverity, v.VisitNotes,
		v.AttendingStaff, v.AttendingStaffName, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.pool.QueryRow(ctx, `SELECT `+visitCols+` FROM visits WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch Patch, now int64) (*Visit, error) {
	var sets []string
	args := []interface{}{id}
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.PatientName != nil {
		set("patient_name", *patch.PatientName)
	}
	if patch.VisitDate != nil {
		set("visit_date", *patch.VisitDate)
	}
	if patch.ChiefComplaint != nil {
		set("chief_complaint", *patch.ChiefComplaint)
	}
	if patch.DurationOfProblem != nil {
		set("duration_of_problem", *patch.DurationOfProblem)
	}
	if patch.PreviousTreatment != nil {
		set("previous_treatment", *patch.PreviousTreatment)
	}
	if patch.PainSeverity != nil {
		set("pain_severity", *patch.PainSeverity)
	}
	if patch.VisitNotes != nil {
		set("visit_notes", *patch.VisitNotes)
	}
	set("updated_at", now)

	query := `UPDATE visits SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + visitCols
	v, err := scanVisit(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visits`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visits ORDER BY visit_date DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visits WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visits WHERE patient_id = $1 ORDER BY visit_date DESC, id LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListIDsByPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM visits WHERE patient_id = $1`, patientID)
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

func (r *repoPG) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.pool.QueryRow(ctx,
		`SELECT `+visitCols+` FROM visits WHERE patient_id = $1 ORDER BY visit_date DESC, id LIMIT 1`,
		patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *repoPG) ListByDateRange(ctx context.Context, from, to int64) ([]*Visit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visits WHERE visit_date > $1 AND visit_date <= $2 ORDER BY visit_date DESC, id`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	visits, _, err := collectVisits(rows, 0)
	return visits, err
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.PatientID, &v.PatientName, &v.VisitDate, &v.ChiefComplaint,
		&v.DurationOfProblem, &v.PreviousTreatment, &v.PainSeverity, &v.VisitNotes,
		&v.AttendingStaff, &v.AttendingStaffName, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows, total int) ([]*Visit, int, error) {
	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

package patient

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DeletionStep is one (collection, id) pair in a cascade deletion plan.
type DeletionStep struct {
	Collection string    `json:"collection"`
	ID         uuid.UUID `json:"id"`
}

// StepResult reports the outcome of a single deletion step.
type StepResult struct {
	DeletionStep
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Collector enumerates and deletes one collection's records for a patient.
// The visit, observation, prescription, exercise-plan and case-note services
// each contribute one at wiring time.
type Collector struct {
	Collection string
	ListIDs    func(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
	Delete     func(ctx context.Context, id uuid.UUID) error
}

// Deleter plans and executes cascading patient deletions. There is no
// cross-entity transaction: every step is an idempotent delete, so a
// partially failed plan can be re-planned and re-run to repair.
type Deleter struct {
	repo       Repository
	collectors []Collector
	log        zerolog.Logger
}

func NewDeleter(repo Repository, log zerolog.Logger) *Deleter {
	return &Deleter{
		repo: repo,
		log:  log.With().Str("component", "patient-deleter").Logger(),
	}
}

// AddCollector registers a collection to cascade into. Not safe to call
// once the server is serving.
func (d *Deleter) AddCollector(c Collector) {
	d.collectors = append(d.collectors, c)
}

// PlanDeletion enumerates every record the cascade will remove. The patient
// row itself is always the final step.
func (d *Deleter) PlanDeletion(ctx context.Context, patientID uuid.UUID) ([]DeletionStep, error) {
	p, err := d.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("patient %s not found", patientID)
	}

	var steps []DeletionStep
	for _, c := range d.collectors {
		ids, err := c.ListIDs(ctx, patientID)
		if err != nil {
			return nil, fmt.Errorf("planning %s: %w", c.Collection, err)
		}
		for _, id := range ids {
			steps = append(steps, DeletionStep{Collection: c.Collection, ID: id})
		}
	}
	steps = append(steps, DeletionStep{Collection: "patients", ID: patientID})
	return steps, nil
}

// ExecutePlan runs the dependent-collection steps concurrently, then deletes
// the patient row only once every dependent step succeeded. Keeping the
// patient row on partial failure is what lets a repair run re-plan: the
// orphaned children stay reachable through it. The returned error is non-nil
// when any step failed; the report still covers all steps.
func (d *Deleter) ExecutePlan(ctx context.Context, steps []DeletionStep) ([]StepResult, error) {
	deleteFuncs := make(map[string]func(context.Context, uuid.UUID) error, len(d.collectors))
	for _, c := range d.collectors {
		deleteFuncs[c.Collection] = c.Delete
	}

	results := make([]StepResult, len(steps))
	var wg sync.WaitGroup
	for i, step := range steps {
		if step.Collection == "patients" {
			continue
		}
		wg.Add(1)
		go func(i int, step DeletionStep) {
			defer wg.Done()
			results[i] = StepResult{DeletionStep: step, OK: true}

			del, ok := deleteFuncs[step.Collection]
			if !ok {
				results[i].OK = false
				results[i].Error = fmt.Sprintf("unknown collection %q", step.Collection)
				return
			}
			if err := del(ctx, step.ID); err != nil {
				results[i].OK = false
				results[i].Error = err.Error()
			}
		}(i, step)
	}
	wg.Wait()

	childrenOK := true
	for i, step := range steps {
		if step.Collection != "patients" && !results[i].OK {
			childrenOK = false
			break
		}
	}
	for i, step := range steps {
		if step.Collection != "patients" {
			continue
		}
		results[i] = StepResult{DeletionStep: step, OK: true}
		if !childrenOK {
			results[i].OK = false
			results[i].Error = "skipped: dependent records remain"
			continue
		}
		if err := d.repo.Delete(ctx, step.ID); err != nil {
			results[i].OK = false
			results[i].Error = err.Error()
		}
	}

	var failed int
	for _, res := range results {
		if !res.OK {
			failed++
			d.log.Error().
				Str("collection", res.Collection).
				Str("id", res.ID.String()).
				Str("error", res.Error).
				Msg("cascade step failed")
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d deletion steps failed", failed, len(steps))
	}
	return results, nil
}

// DeletePatient plans and executes a full cascade for the patient.
func (d *Deleter) DeletePatient(ctx context.Context, patientID uuid.UUID) ([]StepResult, error) {
	steps, err := d.PlanDeletion(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return d.ExecutePlan(ctx, steps)
}

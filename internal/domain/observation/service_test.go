package observation

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type mockRepo struct {
	mu  sync.Mutex
	obs map[uuid.UUID]*Observation
	seq int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{obs: make(map[uuid.UUID]*Observation)}
}

func (m *mockRepo) Upsert(_ context.Context, o *Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.obs {
		if existing.VisitID == o.VisitID {
			updated := *o
			updated.ID = existing.ID
			updated.CreatedAt = existing.CreatedAt
			m.obs[existing.ID] = &updated
			*o = updated
			return nil
		}
	}
	o.ID = uuid.New()
	m.seq++
	o.CreatedAt = m.seq
	cp := *o
	m.obs[o.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obs[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) GetByVisit(_ context.Context, visitID uuid.UUID) (*Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.obs {
		if o.VisitID == visitID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) Update(_ context.Context, id uuid.UUID, patch Patch, now int64) (*Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obs[id]
	if !ok {
		return nil, nil
	}
	if patch.ExaminationFindings != nil {
		o.ExaminationFindings = *patch.ExaminationFindings
	}
	if patch.Diagnosis != nil {
		o.Diagnosis = *patch.Diagnosis
	}
	if patch.TreatmentPlan != nil {
		o.TreatmentPlan = *patch.TreatmentPlan
	}
	if patch.EstimatedRecoveryTime != nil {
		o.EstimatedRecoveryTime = *patch.EstimatedRecoveryTime
	}
	if patch.WarningsAndPrecautions != nil {
		o.WarningsAndPrecautions = *patch.WarningsAndPrecautions
	}
	if patch.DoctorNotes != nil {
		o.DoctorNotes = *patch.DoctorNotes
	}
	o.UpdatedAt = now
	cp := *o
	return &cp, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.obs, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Observation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Observation
	for _, o := range m.obs {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Observation
	for _, o := range m.obs {
		if o.PatientID == patientID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) ListIDsByPatient(_ context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for _, o := range m.obs {
		if o.PatientID == patientID {
			ids = append(ids, o.ID)
		}
	}
	return ids, nil
}

type recordingProjector struct {
	mu       sync.Mutex
	patients []uuid.UUID
	err      error
}

func (r *recordingProjector) ProjectPatient(_ context.Context, patientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients = append(r.patients, patientID)
	return r.err
}

func (r *recordingProjector) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patients)
}

func doctorCtx() context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		UID:   "doc-1",
		Name:  "Dr. Mehta",
		Email: "mehta@clinic.test",
		Role:  auth.RoleDoctor,
	})
}

func TestRecordObservationStampsDoctor(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	o := &Observation{
		VisitID:   uuid.New(),
		PatientID: uuid.New(),
		Diagnosis: "lumbar strain",
	}
	if err := svc.RecordObservation(doctorCtx(), o); err != nil {
		t.Fatalf("record: %v", err)
	}
	if o.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
	if o.DoctorID != "doc-1" || o.DoctorName != "Dr. Mehta" {
		t.Fatalf("doctor stamp = %q/%q", o.DoctorID, o.DoctorName)
	}
	if o.CreatedAt == 0 {
		t.Fatal("expected created_at stamp")
	}
}

func TestRecordObservationProjectionFailureLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	svc := NewService(newMockRepo(), zerolog.New(&logs))
	svc.SetCaseNoteProjector(&recordingProjector{err: errors.New("projection store down")})
	notified := 0
	svc.SetChangeNotifier(func() { notified++ })

	o := &Observation{VisitID: uuid.New(), PatientID: uuid.New(), Diagnosis: "lumbar strain"}
	if err := svc.RecordObservation(doctorCtx(), o); err != nil {
		t.Fatalf("record should survive a projection failure: %v", err)
	}
	if notified != 1 {
		t.Errorf("notifier fired %d times, want 1", notified)
	}
	if !strings.Contains(logs.String(), "case-note projection failed") {
		t.Errorf("projection failure not logged: %s", logs.String())
	}
}

func TestRecordObservationValidation(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	if err := svc.RecordObservation(doctorCtx(), &Observation{PatientID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing visit_id")
	}
	if err := svc.RecordObservation(doctorCtx(), &Observation{VisitID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing patient_id")
	}
}

func TestRecordObservationOnePerVisit(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	visitID := uuid.New()
	patientID := uuid.New()

	first := &Observation{VisitID: visitID, PatientID: patientID, Diagnosis: "initial read"}
	if err := svc.RecordObservation(doctorCtx(), first); err != nil {
		t.Fatalf("first record: %v", err)
	}
	second := &Observation{VisitID: visitID, PatientID: patientID, Diagnosis: "revised read"}
	if err := svc.RecordObservation(doctorCtx(), second); err != nil {
		t.Fatalf("second record: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("replacement got new id %s, want %s", second.ID, first.ID)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Fatal("replacement must keep the original created_at")
	}
	got, err := svc.GetObservationByVisit(context.Background(), visitID)
	if err != nil {
		t.Fatalf("get by visit: %v", err)
	}
	if got.Diagnosis != "revised read" {
		t.Fatalf("diagnosis = %q, want revised read", got.Diagnosis)
	}
	if _, total, _ := repo.ListByPatient(context.Background(), patientID, 0, 0); total != 1 {
		t.Fatalf("expected one observation for the visit, got %d", total)
	}
}

func TestObservationProjectorFires(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	proj := &recordingProjector{}
	svc.SetCaseNoteProjector(proj)

	patientID := uuid.New()
	o := &Observation{VisitID: uuid.New(), PatientID: patientID}
	if err := svc.RecordObservation(doctorCtx(), o); err != nil {
		t.Fatalf("record: %v", err)
	}
	if proj.count() != 1 {
		t.Fatalf("projector fired %d times after record, want 1", proj.count())
	}

	dx := "disc bulge L4-L5"
	if _, err := svc.UpdateObservation(doctorCtx(), o.ID, Patch{Diagnosis: &dx}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if proj.count() != 2 {
		t.Fatalf("projector fired %d times after update, want 2", proj.count())
	}

	// Cascade-path delete skips projection.
	if err := svc.DeleteObservation(context.Background(), o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if proj.count() != 2 {
		t.Fatalf("projector fired %d times after delete, want 2", proj.count())
	}
}

func TestUpdateObservationMissing(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	dx := "whatever"
	o, err := svc.UpdateObservation(doctorCtx(), uuid.New(), Patch{Diagnosis: &dx})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if o != nil {
		t.Fatal("expected nil for missing observation")
	}
}

func TestObservationIDsByPatient(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	patientID := uuid.New()
	for i := 0; i < 3; i++ {
		o := &Observation{VisitID: uuid.New(), PatientID: patientID}
		if err := svc.RecordObservation(doctorCtx(), o); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	ids, err := svc.ObservationIDsByPatient(context.Background(), patientID)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
}

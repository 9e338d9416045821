package visit

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	visits map[uuid.UUID]*Visit
}

func newMockRepo() *mockRepo {
	return &mockRepo{visits: make(map[uuid.UUID]*Visit)}
}

func (m *mockRepo) Create(_ context.Context, v *Visit) error {
	v.ID = uuid.New()
	m.visits[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Visit, error) {
	return m.visits[id], nil
}

func (m *mockRepo) Update(_ context.Context, id uuid.UUID, patch Patch, now int64) (*Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, nil
	}
	if patch.VisitDate != nil {
		v.VisitDate = *patch.VisitDate
	}
	if patch.ChiefComplaint != nil {
		v.ChiefComplaint = *patch.ChiefComplaint
	}
	if patch.PainSeverity != nil {
		v.PainSeverity = patch.PainSeverity
	}
	if patch.VisitNotes != nil {
		v.VisitNotes = *patch.VisitNotes
	}
	v.UpdatedAt = now
	return v, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.visits, id)
	return nil
}

func (m *mockRepo) sorted() []*Visit {
	var result []*Visit
	for _, v := range m.visits {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].VisitDate != result[j].VisitDate {
			return result[i].VisitDate > result[j].VisitDate
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Visit, int, error) {
	all := m.sorted()
	return all, len(all), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var result []*Visit
	for _, v := range m.sorted() {
		if v.PatientID == patientID {
			result = append(result, v)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListIDsByPatient(_ context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, v := range m.visits {
		if v.PatientID == patientID {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}

func (m *mockRepo) LatestByPatient(_ context.Context, patientID uuid.UUID) (*Visit, error) {
	for _, v := range m.sorted() {
		if v.PatientID == patientID {
			return v, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListByDateRange(_ context.Context, from, to int64) ([]*Visit, error) {
	var result []*Visit
	for _, v := range m.sorted() {
		if v.VisitDate > from && v.VisitDate <= to {
			result = append(result, v)
		}
	}
	return result, nil
}

// recordingProjector records each projection request; err, when set, is
// returned from every call.
type recordingProjector struct {
	patients []uuid.UUID
	err      error
}

func (p *recordingProjector) ProjectPatient(_ context.Context, patientID uuid.UUID) error {
	p.patients = append(p.patients, patientID)
	return p.err
}

// -- Tests --

func TestCreateVisit(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())

	v := &Visit{PatientID: uuid.New(), ChiefComplaint: "knee pain"}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Fatalf("CreateVisit: %v", err)
	}
	if v.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if v.VisitDate == 0 || v.CreatedAt == 0 {
		t.Error("expected timestamps to be stamped")
	}
}

func TestCreateVisit_ProjectionFailureLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	svc := NewService(newMockRepo(), zerolog.New(&logs))
	svc.SetCaseNoteProjector(&recordingProjector{err: errors.New("projection store down")})
	notified := 0
	svc.SetChangeNotifier(func() { notified++ })

	v := &Visit{PatientID: uuid.New(), ChiefComplaint: "knee pain"}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Fatalf("CreateVisit should survive a projection failure: %v", err)
	}
	if notified != 1 {
		t.Errorf("notifier fired %d times, want 1", notified)
	}
	if !strings.Contains(logs.String(), "case-note projection failed") {
		t.Errorf("projection failure not logged: %s", logs.String())
	}
}

func TestCreateVisit_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())

	if err := svc.CreateVisit(context.Background(), &Visit{ChiefComplaint: "x"}); err == nil {
		t.Error("expected error for missing patient_id")
	}
	if err := svc.CreateVisit(context.Background(), &Visit{PatientID: uuid.New()}); err == nil {
		t.Error("expected error for missing chief_complaint")
	}

	eleven := 11
	v := &Visit{PatientID: uuid.New(), ChiefComplaint: "x", PainSeverity: &eleven}
	if err := svc.CreateVisit(context.Background(), v); err == nil {
		t.Error("expected error for pain_severity out of range")
	}

	zero := 0
	v = &Visit{PatientID: uuid.New(), ChiefComplaint: "x", PainSeverity: &zero}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Errorf("pain_severity 0 should be valid: %v", err)
	}
}

func TestCreateVisit_FiresProjector(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	proj := &recordingProjector{}
	svc.SetCaseNoteProjector(proj)

	patientID := uuid.New()
	v := &Visit{PatientID: patientID, ChiefComplaint: "knee pain"}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Fatal(err)
	}
	if len(proj.patients) != 1 || proj.patients[0] != patientID {
		t.Errorf("projector calls = %v", proj.patients)
	}
}

func TestUpdateVisit_FiresProjector(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	patientID := uuid.New()
	v := &Visit{PatientID: patientID, ChiefComplaint: "knee pain"}
	svc.CreateVisit(context.Background(), v)

	proj := &recordingProjector{}
	svc.SetCaseNoteProjector(proj)

	notes := "improving"
	if _, err := svc.UpdateVisit(context.Background(), v.ID, Patch{VisitNotes: &notes}); err != nil {
		t.Fatal(err)
	}
	if len(proj.patients) != 1 {
		t.Errorf("projector calls = %v", proj.patients)
	}
}

func TestDeleteVisit_FiresProjector(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	patientID := uuid.New()
	v := &Visit{PatientID: patientID, ChiefComplaint: "knee pain"}
	svc.CreateVisit(context.Background(), v)

	proj := &recordingProjector{}
	svc.SetCaseNoteProjector(proj)

	if err := svc.DeleteVisit(context.Background(), v.ID); err != nil {
		t.Fatal(err)
	}
	if len(proj.patients) != 1 || proj.patients[0] != patientID {
		t.Errorf("projector calls = %v", proj.patients)
	}
}

func TestDeleteVisit_MissingIsNoOp(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	proj := &recordingProjector{}
	svc.SetCaseNoteProjector(proj)

	if err := svc.DeleteVisit(context.Background(), uuid.New()); err != nil {
		t.Fatalf("delete of missing visit should be a no-op: %v", err)
	}
	if len(proj.patients) != 0 {
		t.Error("projector must not fire for missing visit")
	}
}

func TestListVisitsByPatient_Order(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	patientID := uuid.New()

	now := time.Now().UnixMilli()
	older := &Visit{PatientID: patientID, ChiefComplaint: "a", VisitDate: now - 1000}
	newer := &Visit{PatientID: patientID, ChiefComplaint: "b", VisitDate: now}
	svc.CreateVisit(context.Background(), older)
	svc.CreateVisit(context.Background(), newer)

	visits, total, err := svc.ListVisitsByPatient(context.Background(), patientID, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || visits[0].ID != newer.ID {
		t.Errorf("visits = %v", visits)
	}
}

func TestUpdateVisit_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	v := &Visit{PatientID: uuid.New(), ChiefComplaint: "knee pain"}
	svc.CreateVisit(context.Background(), v)

	empty := ""
	if _, err := svc.UpdateVisit(context.Background(), v.ID, Patch{ChiefComplaint: &empty}); err == nil {
		t.Error("expected error when clearing chief_complaint")
	}
	neg := -1
	if _, err := svc.UpdateVisit(context.Background(), v.ID, Patch{PainSeverity: &neg}); err == nil {
		t.Error("expected error for negative pain_severity")
	}
}

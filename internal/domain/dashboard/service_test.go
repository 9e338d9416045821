package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/prescription"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
)

type stubSources struct {
	patients      int
	visits        []*visit.Visit
	prescriptions []*prescription.Prescription
}

func (s *stubSources) ListPatients(_ context.Context, _, _ int) ([]*patient.Patient, int, error) {
	return nil, s.patients, nil
}

func (s *stubSources) VisitsInWindow(_ context.Context, from, to int64) ([]*visit.Visit, error) {
	var out []*visit.Visit
	for _, v := range s.visits {
		if v.VisitDate > from && v.VisitDate <= to {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubSources) CountPendingInWindow(_ context.Context, from, to int64) (int, error) {
	list, _ := s.PendingInWindow(context.Background(), from, to)
	return len(list), nil
}

func (s *stubSources) PendingInWindow(_ context.Context, from, to int64) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	for _, p := range s.prescriptions {
		if p.CreatedAt > from && p.CreatedAt <= to {
			out = append(out, p)
		}
	}
	return out, nil
}

func fixedClock() (time.Time, func() time.Time) {
	now := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.Local)
	return now, func() time.Time { return now }
}

func newVisit(date int64) *visit.Visit {
	return &visit.Visit{ID: uuid.New(), PatientID: uuid.New(), VisitDate: date}
}

func TestTodayRangeBounds(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.Local)
	start, end := TodayRange(now)

	dayStart := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.Local).UnixMilli()
	if start != dayStart {
		t.Fatalf("start = %d, want %d", start, dayStart)
	}
	if end != dayStart+24*3600*1000-1 {
		t.Fatalf("end = %d, want last ms of the day", end)
	}
}

func TestFollowUpWindowBoundaries(t *testing.T) {
	now, _ := fixedClock()
	from, to := FollowUpWindow(now)

	exactly7 := now.AddDate(0, 0, -7).UnixMilli()
	exactly14 := now.AddDate(0, 0, -14).UnixMilli()
	if to != exactly7 {
		t.Fatalf("to = %d, want %d", to, exactly7)
	}
	if from != exactly14 {
		t.Fatalf("from = %d, want %d", from, exactly14)
	}

	// Exactly 7 days old is due; exactly 14 days old is stale.
	in := func(ts int64) bool { return ts > from && ts <= to }
	if !in(exactly7) {
		t.Fatal("a visit exactly 7 days old must be due")
	}
	if in(exactly14) {
		t.Fatal("a visit exactly 14 days old must be stale")
	}
	if !in(now.AddDate(0, 0, -10).UnixMilli()) {
		t.Fatal("a visit 10 days old must be due")
	}
	if in(now.AddDate(0, 0, -2).UnixMilli()) {
		t.Fatal("a visit 2 days old must not be due")
	}
}

func TestTodayVisits(t *testing.T) {
	now, clock := fixedClock()
	dayStart, dayEnd := TodayRange(now)

	src := &stubSources{visits: []*visit.Visit{
		newVisit(dayStart),                // first ms of today
		newVisit(now.UnixMilli()),         // mid-day
		newVisit(dayEnd),                  // last ms of today
		newVisit(dayStart - 1),            // yesterday
		newVisit(dayEnd + 1),              // tomorrow
	}}
	svc := NewService(src, src, src)
	svc.SetClock(clock)

	visits, err := svc.TodayVisits(context.Background())
	if err != nil {
		t.Fatalf("today visits: %v", err)
	}
	if len(visits) != 3 {
		t.Fatalf("len = %d, want 3", len(visits))
	}
}

func TestStats(t *testing.T) {
	now, clock := fixedClock()
	src := &stubSources{
		patients: 42,
		visits: []*visit.Visit{
			newVisit(now.UnixMilli()),                  // today
			newVisit(now.AddDate(0, 0, -10).UnixMilli()), // follow-up due
			newVisit(now.AddDate(0, 0, -30).UnixMilli()), // old, neither
		},
		prescriptions: []*prescription.Prescription{
			{ID: uuid.New(), CreatedAt: now.UnixMilli()},
			{ID: uuid.New(), CreatedAt: now.AddDate(0, 0, -3).UnixMilli()},
		},
	}
	svc := NewService(src, src, src)
	svc.SetClock(clock)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPatients != 42 {
		t.Fatalf("totalPatients = %d, want 42", stats.TotalPatients)
	}
	if stats.TodayVisits != 1 {
		t.Fatalf("todayVisits = %d, want 1", stats.TodayVisits)
	}
	if stats.FollowUpsDue != 1 {
		t.Fatalf("followUpsDue = %d, want 1", stats.FollowUpsDue)
	}
	if stats.PendingPrescriptions != 1 {
		t.Fatalf("pendingPrescriptions = %d, want 1", stats.PendingPrescriptions)
	}
}

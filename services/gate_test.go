package services

import (
	"errors"
	"testing"
	"time"

	"g7kaih_go/models"

	"github.com/go-sql-driver/mysql"
)

// fakeActivityStore keeps activities in memory and enforces the composite
// uniqueness the real index provides.
type fakeActivityStore struct {
	activities []*models.Aktivitas
	nextID     uint
	createErr  error
}

func (s *fakeActivityStore) FindByDay(kegiatanID, studentID uint, day string) (*models.Aktivitas, error) {
	for _, a := range s.activities {
		if a.KegiatanID == kegiatanID && a.UserID == studentID && a.SubmittedDate == day {
			return a, nil
		}
	}
	return nil, nil
}

func (s *fakeActivityStore) Create(activity *models.Aktivitas) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, a := range s.activities {
		if a.KegiatanID == activity.KegiatanID && a.UserID == activity.UserID && a.SubmittedDate == activity.SubmittedDate {
			return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		}
	}
	s.nextID++
	activity.ID = s.nextID
	activity.CreatedAt = time.Now()
	s.activities = append(s.activities, activity)
	return nil
}

func newTestGate(store ActivityStore, now time.Time) *SubmissionGate {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	return &SubmissionGate{
		store: store,
		now:   func() time.Time { return now },
		loc:   loc,
	}
}

func TestReserveOncePerDay(t *testing.T) {
	store := &fakeActivityStore{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(store, now)

	first, err := gate.Reserve(1, 10, "first", "")
	if err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	if first.SubmittedDate != "2026-03-10" {
		t.Errorf("expected submitted date 2026-03-10, got %s", first.SubmittedDate)
	}
	if first.Status != "pending" {
		t.Errorf("expected status pending, got %s", first.Status)
	}

	_, err = gate.Reserve(1, 10, "second", "")
	var already *AlreadySubmittedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadySubmittedError, got %v", err)
	}
	if already.LastSubmittedAt.IsZero() {
		t.Error("expected the prior submission timestamp to be carried")
	}
}

func TestReserveIndependentPairs(t *testing.T) {
	store := &fakeActivityStore{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(store, now)

	if _, err := gate.Reserve(1, 10, "a", ""); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	// same student, different kegiatan
	if _, err := gate.Reserve(2, 10, "b", ""); err != nil {
		t.Errorf("different kegiatan should not collide: %v", err)
	}
	// same kegiatan, different student
	if _, err := gate.Reserve(1, 11, "c", ""); err != nil {
		t.Errorf("different student should not collide: %v", err)
	}
}

func TestReserveNextDaySucceeds(t *testing.T) {
	store := &fakeActivityStore{}
	day1 := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	if _, err := newTestGate(store, day1).Reserve(1, 10, "day1", ""); err != nil {
		t.Fatalf("day 1 reserve failed: %v", err)
	}

	day2 := day1.Add(24 * time.Hour)
	if _, err := newTestGate(store, day2).Reserve(1, 10, "day2", ""); err != nil {
		t.Errorf("next day reserve should succeed: %v", err)
	}
}

func TestTodayUsesAnchorTimezone(t *testing.T) {
	// 18:00 UTC on March 10 is already March 11 01:00 in UTC+7.
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	gate := newTestGate(&fakeActivityStore{}, now)
	if got := gate.Today(); got != "2026-03-11" {
		t.Errorf("expected anchored date 2026-03-11, got %s", got)
	}
}

func TestCheckWindow(t *testing.T) {
	store := &fakeActivityStore{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(store, now)

	window, err := gate.CheckWindow(1, 10)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !window.CanSubmit {
		t.Error("expected open window before any submission")
	}

	if _, err := gate.Reserve(1, 10, "x", ""); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	window, err = gate.CheckWindow(1, 10)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if window.CanSubmit {
		t.Error("expected closed window after submission")
	}
	if window.LastSubmittedAt == nil {
		t.Error("expected last submission timestamp")
	}
}

func TestReserveMapsDuplicateRace(t *testing.T) {
	// The store reports a uniqueness violation even though FindByDay sees
	// nothing, as happens when a concurrent insert wins between check and
	// insert.
	store := &fakeActivityStore{createErr: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}}
	gate := newTestGate(store, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := gate.Reserve(1, 10, "x", "")
	var already *AlreadySubmittedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadySubmittedError, got %v", err)
	}
}

func TestReservePassesThroughOtherErrors(t *testing.T) {
	store := &fakeActivityStore{createErr: errors.New("connection lost")}
	gate := newTestGate(store, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := gate.Reserve(1, 10, "x", "")
	var already *AlreadySubmittedError
	if errors.As(err, &already) {
		t.Fatal("generic store error must not be classified as duplicate")
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

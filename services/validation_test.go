package services

import (
	"errors"
	"testing"
	"time"

	"g7kaih_go/models"
)

// fakeFieldValueStore keeps field values and activities in memory and records
// every SetFlag call so tests can assert the touch-on-unchanged behavior.
type fakeFieldValueStore struct {
	fieldValues map[uint]*models.AktivitasFieldValue
	activities  map[uint]*models.Aktivitas
	setFlagLog  []string
	flagErr     error
}

func (s *fakeFieldValueStore) FindFieldValue(id uint) (*models.AktivitasFieldValue, error) {
	return s.fieldValues[id], nil
}

func (s *fakeFieldValueStore) FindActivity(id uint) (*models.Aktivitas, error) {
	return s.activities[id], nil
}

func (s *fakeFieldValueStore) SetFlag(fv *models.AktivitasFieldValue, column string, validated bool) error {
	if s.flagErr != nil {
		return s.flagErr
	}
	s.setFlagLog = append(s.setFlagLog, column)
	if column == "validated_by_teacher" {
		fv.ValidatedByTeacher = validated
	} else {
		fv.ValidatedByParent = validated
	}
	fv.UpdatedAt = fv.UpdatedAt.Add(time.Second)
	return nil
}

func newValidationFixture() (*ValidationService, *fakeFieldValueStore) {
	store := &fakeFieldValueStore{
		fieldValues: map[uint]*models.AktivitasFieldValue{
			100: {BaseModel: models.BaseModel{ID: 100}, ActivityID: 1, FieldID: 71},
		},
		activities: map[uint]*models.Aktivitas{
			1: {BaseModel: models.BaseModel{ID: 1}, KegiatanID: 1, UserID: 5},
		},
	}
	return NewValidationService(store), store
}

func TestSetTeacherValidation(t *testing.T) {
	vs, _ := newValidationFixture()

	fv, err := vs.SetTeacherValidation(100, true)
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !fv.ValidatedByTeacher {
		t.Error("expected teacher flag set")
	}
	if fv.ValidatedByParent {
		t.Error("teacher flag must not imply the parent flag")
	}
	if got := vs.StatusOf(fv); got != models.ValidationByTeacher {
		t.Errorf("expected teacher_validated, got %s", got)
	}
}

func TestSetParentValidationLinkedStudent(t *testing.T) {
	tests := []struct {
		name            string
		linkedStudentID uint
		wantErr         error
	}{
		{"matching linked student", 5, nil},
		{"mismatching linked student", 42, ErrNotLinkedStudent},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			vs, _ := newValidationFixture()

			fv, err := vs.SetParentValidation(tc.linkedStudentID, 100, true)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}
			if !fv.ValidatedByParent {
				t.Error("expected parent flag set")
			}
			if fv.ValidatedByTeacher {
				t.Error("parent flag must not imply the teacher flag")
			}
		})
	}
}

func TestSetValidationMissingFieldValue(t *testing.T) {
	vs, _ := newValidationFixture()

	if _, err := vs.SetTeacherValidation(999, true); !errors.Is(err, ErrFieldValueNotFound) {
		t.Errorf("expected ErrFieldValueNotFound, got %v", err)
	}
	if _, err := vs.SetParentValidation(5, 999, true); !errors.Is(err, ErrFieldValueNotFound) {
		t.Errorf("expected ErrFieldValueNotFound, got %v", err)
	}
}

func TestValidationFlagsAreReversible(t *testing.T) {
	vs, _ := newValidationFixture()

	if _, err := vs.SetTeacherValidation(100, true); err != nil {
		t.Fatalf("teacher set failed: %v", err)
	}
	if _, err := vs.SetParentValidation(5, 100, true); err != nil {
		t.Fatalf("parent set failed: %v", err)
	}

	// fully validated is not a lock; either side may withdraw
	fv, err := vs.SetTeacherValidation(100, false)
	if err != nil {
		t.Fatalf("teacher unset failed: %v", err)
	}
	if got := vs.StatusOf(fv); got != models.ValidationByParent {
		t.Errorf("expected parent_validated after teacher withdrawal, got %s", got)
	}

	fv, err = vs.SetParentValidation(5, 100, false)
	if err != nil {
		t.Fatalf("parent unset failed: %v", err)
	}
	if got := vs.StatusOf(fv); got != models.ValidationPending {
		t.Errorf("expected pending after both withdrawals, got %s", got)
	}
}

func TestValidationTouchesRowWhenUnchanged(t *testing.T) {
	vs, store := newValidationFixture()

	if _, err := vs.SetTeacherValidation(100, true); err != nil {
		t.Fatalf("first set failed: %v", err)
	}
	if _, err := vs.SetTeacherValidation(100, true); err != nil {
		t.Fatalf("repeat set failed: %v", err)
	}
	// the repeat write still reaches the store so updated_at moves
	if len(store.setFlagLog) != 2 {
		t.Errorf("expected 2 flag writes, got %d", len(store.setFlagLog))
	}
}

func TestValidationStoreErrorPassthrough(t *testing.T) {
	vs, store := newValidationFixture()
	store.flagErr = errors.New("connection lost")

	_, err := vs.SetTeacherValidation(100, true)
	if err == nil || errors.Is(err, ErrFieldValueNotFound) || errors.Is(err, ErrNotLinkedStudent) {
		t.Fatalf("expected the store error to pass through, got %v", err)
	}
}

package services

import (
	"errors"

	"g7kaih_go/models"

	"gorm.io/gorm"
)

var (
	// ErrFieldValueNotFound maps to a 404 response.
	ErrFieldValueNotFound = errors.New("field value not found")
	// ErrNotLinkedStudent maps to a 403 response: the parent actor is not
	// linked to the field value's owning student.
	ErrNotLinkedStudent = errors.New("field value does not belong to the linked student")
)

// FieldValueStore is the persistence surface the validation service needs.
// Find methods return (nil, nil) when the row does not exist. SetFlag must
// bump the row's updated_at even when the flag value is unchanged.
type FieldValueStore interface {
	FindFieldValue(id uint) (*models.AktivitasFieldValue, error)
	FindActivity(id uint) (*models.Aktivitas, error)
	SetFlag(fv *models.AktivitasFieldValue, column string, validated bool) error
}

// ValidationService toggles the two independent acknowledgment flags on a
// submitted field value. The flags never imply each other and there is no
// lock after full validation; either actor may un-validate at any time.
type ValidationService struct {
	store FieldValueStore
}

func NewValidationService(store FieldValueStore) *ValidationService {
	return &ValidationService{store: store}
}

// SetTeacherValidation sets the teacher flag. The supervisory-relationship
// check happens in the authorization layer before this is called; here a
// valid field value id is the only requirement.
func (vs *ValidationService) SetTeacherValidation(fieldValueID uint, validated bool) (*models.AktivitasFieldValue, error) {
	return vs.setFlag(fieldValueID, "validated_by_teacher", validated, 0)
}

// SetParentValidation sets the parent flag after verifying the field value's
// owning activity belongs to the parent's linked student.
func (vs *ValidationService) SetParentValidation(linkedStudentID, fieldValueID uint, validated bool) (*models.AktivitasFieldValue, error) {
	return vs.setFlag(fieldValueID, "validated_by_parent", validated, linkedStudentID)
}

func (vs *ValidationService) setFlag(fieldValueID uint, column string, validated bool, requireStudentID uint) (*models.AktivitasFieldValue, error) {
	fv, err := vs.store.FindFieldValue(fieldValueID)
	if err != nil {
		return nil, err
	}
	if fv == nil {
		return nil, ErrFieldValueNotFound
	}

	if requireStudentID != 0 {
		activity, err := vs.store.FindActivity(fv.ActivityID)
		if err != nil {
			return nil, err
		}
		if activity == nil || activity.UserID != requireStudentID {
			return nil, ErrNotLinkedStudent
		}
	}

	if err := vs.store.SetFlag(fv, column, validated); err != nil {
		return nil, err
	}

	if column == "validated_by_teacher" {
		fv.ValidatedByTeacher = validated
	} else {
		fv.ValidatedByParent = validated
	}
	return fv, nil
}

// StatusOf re-exports the derived status for handler convenience.
func (vs *ValidationService) StatusOf(fv *models.AktivitasFieldValue) models.ValidationStatus {
	return models.StatusOf(fv.ValidatedByTeacher, fv.ValidatedByParent)
}

// gormFieldValueStore backs the validation service with the shared GORM
// connection.
type gormFieldValueStore struct {
	db *gorm.DB
}

func NewGormFieldValueStore(db *gorm.DB) FieldValueStore {
	return &gormFieldValueStore{db: db}
}

func (s *gormFieldValueStore) FindFieldValue(id uint) (*models.AktivitasFieldValue, error) {
	var fv models.AktivitasFieldValue
	err := s.db.First(&fv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fv, nil
}

func (s *gormFieldValueStore) FindActivity(id uint) (*models.Aktivitas, error) {
	var activity models.Aktivitas
	err := s.db.First(&activity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *gormFieldValueStore) SetFlag(fv *models.AktivitasFieldValue, column string, validated bool) error {
	// Update() bumps updated_at even when the flag value is unchanged, which
	// is what callers rely on to see "last touched".
	return s.db.Model(fv).Update(column, validated).Error
}

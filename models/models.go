package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// UserProfile holds the identity records the pipeline consumes. Accounts are
// created and authenticated elsewhere; this service only reads them.
type UserProfile struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Email    string `json:"email" gorm:"size:255"`
	Kelas    string `json:"kelas" gorm:"size:50"`
	Role     string `json:"role" gorm:"size:50;not null;default:'siswa';type:enum('admin','guru','guruwali','orangtua','siswa')"` // admin, guru, guruwali, orangtua, siswa

	// GuruWaliID links a student to the supervising guru wali.
	GuruWaliID *uint `json:"guruwali_id"`
	// ParentOfUserID links a parent account to its single student.
	ParentOfUserID *uint `json:"parent_of_user_id"`
}

// Kegiatan is an activity template students report against repeatedly.
type Kegiatan struct {
	BaseModel
	Name   string `json:"kegiatanname" gorm:"size:255;not null;uniqueIndex"`
	Active bool   `json:"active" gorm:"default:true"`

	Categories []Category `json:"categories,omitempty" gorm:"many2many:kegiatan_categories;"`
}

// Category groups fields within a kegiatan's report form.
type Category struct {
	BaseModel
	Name string `json:"categoryname" gorm:"size:255;not null"`

	Fields []CategoryField `json:"fields,omitempty" gorm:"foreignKey:CategoryID"`
}

// CategoryField is an admin-authored field definition. Config is free-form
// JSON and may be malformed; it is normalized on every read, never in place.
type CategoryField struct {
	BaseModel
	CategoryID uint   `json:"categoryid" gorm:"not null;index"`
	FieldKey   string `json:"field_key" gorm:"size:100;not null"`
	Label      string `json:"label" gorm:"size:255"`
	Type       string `json:"type" gorm:"size:50;default:'text'"`
	Required   bool   `json:"required" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	Config     JSON   `json:"config" gorm:"type:json"`

	Category Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// Aktivitas is one submission header. The composite unique index is the
// authoritative enforcement of the once-per-day invariant; application-level
// checks are advisory only.
type Aktivitas struct {
	BaseModel
	KegiatanID uint   `json:"kegiatanid" gorm:"not null;uniqueIndex:uniq_kegiatan_user_date"`
	UserID     uint   `json:"userid" gorm:"not null;uniqueIndex:uniq_kegiatan_user_date"`
	Name       string `json:"activityname" gorm:"size:255;not null"`
	Content    string `json:"activitycontent" gorm:"type:text"`
	Status     string `json:"status" gorm:"size:50;default:'pending'"`
	// SubmittedDate is the calendar date in the configured timezone, distinct
	// from CreatedAt which is the wall-clock submission instant.
	SubmittedDate string `json:"submitted_date" gorm:"size:10;not null;uniqueIndex:uniq_kegiatan_user_date"`

	Kegiatan    Kegiatan              `json:"kegiatan,omitempty" gorm:"foreignKey:KegiatanID"`
	FieldValues []AktivitasFieldValue `json:"field_values,omitempty" gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE"`
	FieldFiles  []AktivitasFieldFile  `json:"field_files,omitempty" gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE"`
}

// AktivitasFieldValue is one submitted value bound to a schema field.
// Image-type fields keep Value nil; the bytes live in the object store and
// are referenced by the AktivitasFieldFile row on the same (activity, field).
type AktivitasFieldValue struct {
	BaseModel
	ActivityID         uint    `json:"activityid" gorm:"not null;index"`
	FieldID            uint    `json:"fieldid" gorm:"not null;index"`
	Value              *string `json:"value" gorm:"type:text"`
	ValidatedByTeacher bool    `json:"validated_by_teacher" gorm:"default:false"`
	ValidatedByParent  bool    `json:"validated_by_parent" gorm:"default:false"`

	Activity Aktivitas     `json:"activity,omitempty" gorm:"foreignKey:ActivityID"`
	Field    CategoryField `json:"field,omitempty" gorm:"foreignKey:FieldID"`
}

// AktivitasFieldFile records an uploaded attachment's storage location.
type AktivitasFieldFile struct {
	BaseModel
	ActivityID      uint   `json:"activityid" gorm:"not null;index:idx_file_activity_field"`
	FieldID         uint   `json:"fieldid" gorm:"not null;index:idx_file_activity_field"`
	Filename        string `json:"filename" gorm:"size:255"`
	StorageURL      string `json:"storage_url" gorm:"size:500"`
	StoragePublicID string `json:"storage_public_id" gorm:"size:255"`
	ContentType     string `json:"content_type" gorm:"size:100"`
}

// SubmissionWindowSetting is the admin-controlled global toggle. A closed
// window blocks students from starting new reports regardless of the per-day
// check.
type SubmissionWindowSetting struct {
	BaseModel
	IsOpen    bool  `json:"is_open" gorm:"default:false"`
	UpdatedBy *uint `json:"updated_by"`
}

// ValidationStatus is derived from the two independent validation flags.
// It is never stored.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationByTeacher ValidationStatus = "teacher_validated"
	ValidationByParent  ValidationStatus = "parent_validated"
	ValidationFull      ValidationStatus = "fully_validated"
)

// StatusOf maps the flag pair onto the derived validation status.
func StatusOf(teacher, parent bool) ValidationStatus {
	switch {
	case teacher && parent:
		return ValidationFull
	case teacher:
		return ValidationByTeacher
	case parent:
		return ValidationByParent
	default:
		return ValidationPending
	}
}

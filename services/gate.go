package services

import (
	"errors"
	"fmt"
	"time"

	"g7kaih_go/config"
	"g7kaih_go/models"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// SubmissionWindow is the per-(kegiatan, student) daily eligibility state.
// It is derived on every check, never stored.
type SubmissionWindow struct {
	CanSubmit       bool       `json:"can_submit"`
	LastSubmittedAt *time.Time `json:"last_submitted_at,omitempty"`
}

// AlreadySubmittedError signals that the daily window for this (kegiatan,
// student) pair is closed. It carries the prior submission's timestamp so the
// caller can tell the student exactly when to come back.
type AlreadySubmittedError struct {
	LastSubmittedAt time.Time
}

func (e *AlreadySubmittedError) Error() string {
	return fmt.Sprintf("already submitted today (last submission %s)", e.LastSubmittedAt.Format(time.RFC3339))
}

// ActivityStore is the persistence surface the gate needs. The GORM
// implementation must surface the storage-level uniqueness violation
// unwrapped so it can be classified.
type ActivityStore interface {
	FindByDay(kegiatanID, studentID uint, day string) (*models.Aktivitas, error)
	Create(activity *models.Aktivitas) error
}

// SubmissionGate enforces at most one submission per (kegiatan, student) per
// calendar day, anchored to the configured timezone.
//
// CheckWindow is an advisory pre-check for UX; the check-then-insert pattern
// is racy, so correctness comes only from the unique index hit inside
// Reserve.
type SubmissionGate struct {
	store ActivityStore
	now   func() time.Time
	loc   *time.Location
}

func NewSubmissionGate(store ActivityStore) *SubmissionGate {
	return &SubmissionGate{
		store: store,
		now:   time.Now,
		loc:   config.Location(),
	}
}

// Today returns the current calendar date in the anchor timezone.
func (g *SubmissionGate) Today() string {
	return g.now().In(g.loc).Format("2006-01-02")
}

// CheckWindow reports whether the pair may submit today.
func (g *SubmissionGate) CheckWindow(kegiatanID, studentID uint) (SubmissionWindow, error) {
	existing, err := g.store.FindByDay(kegiatanID, studentID, g.Today())
	if err != nil {
		return SubmissionWindow{}, err
	}
	if existing != nil {
		last := existing.CreatedAt
		return SubmissionWindow{CanSubmit: false, LastSubmittedAt: &last}, nil
	}
	return SubmissionWindow{CanSubmit: true}, nil
}

// Reserve inserts the submission header for today. A uniqueness violation
// means a concurrent request won the race; it is returned as
// *AlreadySubmittedError, never as a generic failure.
func (g *SubmissionGate) Reserve(kegiatanID, studentID uint, name, content string) (*models.Aktivitas, error) {
	activity := &models.Aktivitas{
		KegiatanID:    kegiatanID,
		UserID:        studentID,
		Name:          name,
		Content:       content,
		Status:        "pending",
		SubmittedDate: g.Today(),
	}

	if err := g.store.Create(activity); err != nil {
		if isDuplicateEntry(err) {
			last := g.now()
			if prior, ferr := g.store.FindByDay(kegiatanID, studentID, g.Today()); ferr == nil && prior != nil {
				last = prior.CreatedAt
			}
			return nil, &AlreadySubmittedError{LastSubmittedAt: last}
		}
		return nil, err
	}

	return activity, nil
}

// isDuplicateEntry recognizes the storage-level unique constraint violation.
func isDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// gormActivityStore backs the gate with the shared GORM connection.
type gormActivityStore struct {
	db *gorm.DB
}

func NewGormActivityStore(db *gorm.DB) ActivityStore {
	return &gormActivityStore{db: db}
}

func (s *gormActivityStore) FindByDay(kegiatanID, studentID uint, day string) (*models.Aktivitas, error) {
	var activity models.Aktivitas
	err := s.db.
		Where("kegiatan_id = ? AND user_id = ? AND submitted_date = ?", kegiatanID, studentID, day).
		First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *gormActivityStore) Create(activity *models.Aktivitas) error {
	return s.db.Create(activity).Error
}

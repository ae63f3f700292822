package services

import (
	"errors"

	"g7kaih_go/models"

	"gorm.io/gorm"
)

// WindowStore persists the global submission toggle. Latest returns
// (nil, nil) when no setting row exists yet.
type WindowStore interface {
	Latest() (*models.SubmissionWindowSetting, error)
	Save(setting *models.SubmissionWindowSetting) error
}

// WindowService manages the admin-controlled global submission toggle. This
// is orthogonal to the per-day gate: the gate limits frequency, the toggle
// turns intake off entirely.
type WindowService struct {
	store WindowStore
}

func NewWindowService(store WindowStore) *WindowService {
	return &WindowService{store: store}
}

// IsOpen reports the current global window state. An unconfigured system has
// no setting row and counts as open.
func (ws *WindowService) IsOpen() (bool, error) {
	setting, err := ws.store.Latest()
	if err != nil {
		return false, err
	}
	if setting == nil {
		return true, nil
	}
	return setting.IsOpen, nil
}

// Set records a new window state and who flipped it.
func (ws *WindowService) Set(open bool, updatedBy uint) (*models.SubmissionWindowSetting, error) {
	setting, err := ws.store.Latest()
	if err != nil {
		return nil, err
	}
	if setting == nil {
		setting = &models.SubmissionWindowSetting{}
	}

	setting.IsOpen = open
	setting.UpdatedBy = &updatedBy
	if err := ws.store.Save(setting); err != nil {
		return nil, err
	}
	return setting, nil
}

// gormWindowStore backs the window service with the shared GORM connection.
type gormWindowStore struct {
	db *gorm.DB
}

func NewGormWindowStore(db *gorm.DB) WindowStore {
	return &gormWindowStore{db: db}
}

func (s *gormWindowStore) Latest() (*models.SubmissionWindowSetting, error) {
	var setting models.SubmissionWindowSetting
	err := s.db.Order("id DESC").First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *gormWindowStore) Save(setting *models.SubmissionWindowSetting) error {
	return s.db.Save(setting).Error
}

package services

import (
	"errors"

	"g7kaih_go/models"

	"gorm.io/gorm"
)

// GormSchemaSource reads kegiatan and category schemas from the database.
// The admin CRUD that writes them lives in another service; everything here
// is read-only.
type GormSchemaSource struct {
	db *gorm.DB
}

func NewGormSchemaSource(db *gorm.DB) *GormSchemaSource {
	return &GormSchemaSource{db: db}
}

func (s *GormSchemaSource) KegiatanName(kegiatanID uint) (string, error) {
	var kegiatan models.Kegiatan
	err := s.db.Where("id = ? AND active = ?", kegiatanID, true).First(&kegiatan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrKegiatanNotFound
	}
	if err != nil {
		return "", err
	}
	return kegiatan.Name, nil
}

// CategorySchemas returns the normalized form schema for every category
// attached to the kegiatan. Malformed stored field rows degrade per the
// normalizer's rules instead of failing the read.
func (s *GormSchemaSource) CategorySchemas(kegiatanID uint) ([]CategorySchema, error) {
	var kegiatan models.Kegiatan
	err := s.db.Preload("Categories.Fields").Where("id = ?", kegiatanID).First(&kegiatan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKegiatanNotFound
	}
	if err != nil {
		return nil, err
	}

	schemas := make([]CategorySchema, 0, len(kegiatan.Categories))
	for _, cat := range kegiatan.Categories {
		cs := CategorySchema{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Fields:       make([]Field, 0, len(cat.Fields)),
		}
		for i, cf := range cat.Fields {
			f := NormalizeCategoryField(cf, i)
			if f.Key == "" {
				continue
			}
			cs.Fields = append(cs.Fields, f)
		}
		sortFieldsByOrder(cs.Fields)
		schemas = append(schemas, cs)
	}
	return schemas, nil
}

// GormSubmissionWriter persists accepted submission rows in batches.
type GormSubmissionWriter struct {
	db *gorm.DB
}

func NewGormSubmissionWriter(db *gorm.DB) *GormSubmissionWriter {
	return &GormSubmissionWriter{db: db}
}

func (w *GormSubmissionWriter) SaveValues(values []models.AktivitasFieldValue) error {
	if len(values) == 0 {
		return nil
	}
	return w.db.Create(&values).Error
}

func (w *GormSubmissionWriter) SaveFiles(files []models.AktivitasFieldFile) error {
	if len(files) == 0 {
		return nil
	}
	return w.db.Create(&files).Error
}

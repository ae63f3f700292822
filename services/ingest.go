package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"g7kaih_go/config"
	"g7kaih_go/models"
	"g7kaih_go/storage"
	"g7kaih_go/utils"

	"github.com/sirupsen/logrus"
)

var (
	// ErrKegiatanRequired maps to a 400 response.
	ErrKegiatanRequired = errors.New("kegiatanid is required")
	// ErrKegiatanNotFound maps to a 404 response.
	ErrKegiatanNotFound = errors.New("kegiatan not found")
)

// allowedUploadExtensions limits attachments to the formats the form clients
// produce.
var allowedUploadExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "pdf"}

// SubmittedField is one value in the incoming payload, matching the form
// client's `{key, type, value}` shape. Value stays untyped until it is
// normalized against the schema field, not the client-claimed type.
type SubmittedField struct {
	Key   string      `json:"key"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// SubmittedGroup carries one category's values.
type SubmittedGroup struct {
	CategoryID uint             `json:"categoryid"`
	Fields     []SubmittedField `json:"fields"`
}

// Attachment is one uploaded binary, tagged back to its logical field.
type Attachment struct {
	CategoryID  uint
	FieldKey    string
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitRequest is the full parsed submission.
type SubmitRequest struct {
	KegiatanID  uint
	StudentID   uint
	Name        string
	Content     string
	Groups      []SubmittedGroup
	Attachments []Attachment
}

// SubmitResult reports a (possibly partially) successful ingestion. Per-item
// problems surface in Warnings; they never abort the whole submission.
type SubmitResult struct {
	ActivityID    uint     `json:"activityid"`
	InsertedCount int      `json:"inserted_count"`
	Warnings      []string `json:"warnings"`
}

// SchemaSource supplies the read-only category schemas for a kegiatan.
type SchemaSource interface {
	KegiatanName(kegiatanID uint) (string, error)
	CategorySchemas(kegiatanID uint) ([]CategorySchema, error)
}

// ObjectStore is the external blob storage collaborator. Each call may fail
// independently of the others.
type ObjectStore interface {
	Store(data []byte, filename, folderHint string) (storage.StoredObject, error)
}

// SubmissionWriter persists the accepted rows, one batch per table.
type SubmissionWriter interface {
	SaveValues(values []models.AktivitasFieldValue) error
	SaveFiles(files []models.AktivitasFieldFile) error
}

// Ingestor binds submitted values and attachments to the normalized schema
// and persists them. Field-value persistence and object-store upload are
// separate systems with no shared transaction; a file failure after the
// value batch leaves the values committed, visible through Warnings.
type Ingestor struct {
	schemas   SchemaSource
	gate      *SubmissionGate
	store     ObjectStore
	writer    SubmissionWriter
	maxUpload int64
	folder    string
	now       func() time.Time
}

func NewIngestor(schemas SchemaSource, gate *SubmissionGate, store ObjectStore, writer SubmissionWriter) *Ingestor {
	return &Ingestor{
		schemas:   schemas,
		gate:      gate,
		store:     store,
		writer:    writer,
		maxUpload: config.AppConfig.MaxUploadSize,
		folder:    config.AppConfig.UploadFolder,
		now:       time.Now,
	}
}

// Submit runs the full ingestion pipeline for one student submission.
func (ing *Ingestor) Submit(req SubmitRequest) (*SubmitResult, error) {
	if req.KegiatanID == 0 {
		return nil, ErrKegiatanRequired
	}

	kegiatanName, err := ing.schemas.KegiatanName(req.KegiatanID)
	if err != nil {
		return nil, err
	}

	// Advisory pre-check: reject before any upload work begins. The insert
	// below re-checks authoritatively.
	window, err := ing.gate.CheckWindow(req.KegiatanID, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !window.CanSubmit {
		last := ing.now()
		if window.LastSubmittedAt != nil {
			last = *window.LastSubmittedAt
		}
		return nil, &AlreadySubmittedError{LastSubmittedAt: last}
	}

	name := utils.SanitizeString(req.Name)
	if name == "" {
		name = fmt.Sprintf("%s - %s", kegiatanName, ing.now().In(config.Location()).Format("2006-01-02 15:04:05"))
	}

	activity, err := ing.gate.Reserve(req.KegiatanID, req.StudentID, name, utils.SanitizeString(req.Content))
	if err != nil {
		return nil, err
	}

	lookup, err := ing.buildFieldLookup(req)
	if err != nil {
		return nil, err
	}

	var warnings []string
	var values []models.AktivitasFieldValue

	for _, group := range req.Groups {
		for _, sub := range group.Fields {
			field, ok := lookup[fieldRef{group.CategoryID, sub.Key}]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown field: category=%d key=%s", group.CategoryID, sub.Key))
				continue
			}
			if field.Type == FieldImage {
				// image content arrives exclusively through the attachment
				// path; there is no value row to insert
				continue
			}
			values = append(values, models.AktivitasFieldValue{
				ActivityID: activity.ID,
				FieldID:    field.ID,
				Value:      normalizeValue(field.Type, sub.Value),
			})
		}
	}

	// Values are committed in one batch before any upload is attempted, so a
	// failed upload can never lose already-accepted values.
	if len(values) > 0 {
		if err := ing.writer.SaveValues(values); err != nil {
			return nil, err
		}
	}

	var files []models.AktivitasFieldFile
	for _, att := range req.Attachments {
		field, ok := lookup[fieldRef{att.CategoryID, att.FieldKey}]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown field: category=%d key=%s (attachment %s)", att.CategoryID, att.FieldKey, att.Filename))
			continue
		}
		if int64(len(att.Data)) > ing.maxUpload {
			warnings = append(warnings, fmt.Sprintf("file too large: %s (%d bytes, limit %d)", att.Filename, len(att.Data), ing.maxUpload))
			continue
		}
		if !utils.IsValidFileExtension(att.Filename, allowedUploadExtensions) {
			warnings = append(warnings, fmt.Sprintf("unsupported file type: %s", att.Filename))
			continue
		}

		obj, err := ing.store.Store(att.Data, att.Filename, ing.folder)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("upload failed: %s: %v", att.Filename, err))
			logrus.WithFields(logrus.Fields{
				"activity_id": activity.ID,
				"field_id":    field.ID,
				"filename":    att.Filename,
			}).WithError(err).Warn("attachment upload failed")
			continue
		}

		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		files = append(files, models.AktivitasFieldFile{
			ActivityID:      activity.ID,
			FieldID:         field.ID,
			Filename:        att.Filename,
			StorageURL:      obj.URL,
			StoragePublicID: obj.PublicID,
			ContentType:     contentType,
		})
	}

	if len(files) > 0 {
		if err := ing.writer.SaveFiles(files); err != nil {
			return nil, err
		}
	}

	if len(warnings) > 0 {
		logrus.WithFields(logrus.Fields{
			"activity_id": activity.ID,
			"warnings":    warnings,
		}).Warn("submission accepted with warnings")
	}

	return &SubmitResult{
		ActivityID:    activity.ID,
		InsertedCount: len(values),
		Warnings:      append([]string{}, warnings...),
	}, nil
}

type fieldRef struct {
	categoryID uint
	key        string
}

// buildFieldLookup indexes schema fields by (category, key), restricted to
// the categories the submission actually references.
func (ing *Ingestor) buildFieldLookup(req SubmitRequest) (map[fieldRef]Field, error) {
	referenced := make(map[uint]bool)
	for _, g := range req.Groups {
		referenced[g.CategoryID] = true
	}
	for _, a := range req.Attachments {
		referenced[a.CategoryID] = true
	}

	schemas, err := ing.schemas.CategorySchemas(req.KegiatanID)
	if err != nil {
		return nil, err
	}

	lookup := make(map[fieldRef]Field)
	for _, cs := range schemas {
		if !referenced[cs.CategoryID] {
			continue
		}
		for _, f := range cs.Fields {
			if f.Key == "" {
				continue
			}
			lookup[fieldRef{cs.CategoryID, f.Key}] = f
		}
	}
	return lookup, nil
}

// normalizeValue encodes one submitted value according to the schema field's
// type. The result is the text stored in the value row; nil means SQL NULL.
func normalizeValue(fieldType FieldType, raw interface{}) *string {
	switch fieldType {
	case FieldMultiselect:
		switch v := raw.(type) {
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, stringValue(item))
			}
			return strPtr(strings.Join(parts, ","))
		case nil:
			return strPtr("")
		default:
			return strPtr(stringValue(v))
		}
	case FieldTextImage:
		if obj, ok := raw.(map[string]interface{}); ok {
			return strPtr(stringValue(obj["text"]))
		}
		return strPtr(stringifyFallback(raw))
	case FieldImage:
		return nil
	default: // text, time and any future type stringify as-is
		return strPtr(stringifyFallback(raw))
	}
}

// stringifyFallback renders scalars like stringValue but keeps structured
// values readable by JSON-encoding them.
func stringifyFallback(raw interface{}) string {
	switch raw.(type) {
	case nil:
		return ""
	case map[string]interface{}, []interface{}:
		if b, err := json.Marshal(raw); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", raw)
	default:
		return stringValue(raw)
	}
}

func strPtr(s string) *string {
	return &s
}

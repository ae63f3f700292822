package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"g7kaih_go/config"
	"g7kaih_go/models"
	"g7kaih_go/storage"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{
		Timezone:      "Asia/Jakarta",
		MaxUploadSize: 5 * 1024 * 1024,
		UploadFolder:  "aktivitas",
	}
	os.Exit(m.Run())
}

type fakeSchemaSource struct {
	name    string
	nameErr error
	schemas []CategorySchema
}

func (f *fakeSchemaSource) KegiatanName(kegiatanID uint) (string, error) {
	if f.nameErr != nil {
		return "", f.nameErr
	}
	return f.name, nil
}

func (f *fakeSchemaSource) CategorySchemas(kegiatanID uint) ([]CategorySchema, error) {
	return f.schemas, nil
}

type fakeObjectStore struct {
	uploads []string
	failFor map[string]bool
}

func (f *fakeObjectStore) Store(data []byte, filename, folderHint string) (storage.StoredObject, error) {
	if f.failFor[filename] {
		return storage.StoredObject{}, errors.New("storage unavailable")
	}
	f.uploads = append(f.uploads, filename)
	return storage.StoredObject{
		URL:      "https://cdn.example.com/" + filename,
		PublicID: folderHint + "/" + filename,
	}, nil
}

type fakeWriter struct {
	values []models.AktivitasFieldValue
	files  []models.AktivitasFieldFile
}

func (f *fakeWriter) SaveValues(values []models.AktivitasFieldValue) error {
	f.values = append(f.values, values...)
	return nil
}

func (f *fakeWriter) SaveFiles(files []models.AktivitasFieldFile) error {
	f.files = append(f.files, files...)
	return nil
}

func newTestIngestor(schemas SchemaSource, store ObjectStore, writer SubmissionWriter) *Ingestor {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &Ingestor{
		schemas:   schemas,
		gate:      newTestGate(&fakeActivityStore{}, now),
		store:     store,
		writer:    writer,
		maxUpload: 5 * 1024 * 1024,
		folder:    "aktivitas",
		now:       func() time.Time { return now },
	}
}

func dailySchema() *fakeSchemaSource {
	return &fakeSchemaSource{
		name: "Kegiatan Harian",
		schemas: []CategorySchema{
			{
				CategoryID:   7,
				CategoryName: "Ibadah",
				Fields: []Field{
					{ID: 71, Key: "catatan", Type: FieldText},
					{ID: 72, Key: "bukti_foto", Type: FieldImage},
					{ID: 73, Key: "pilihan", Type: FieldMultiselect},
					{ID: 74, Key: "refleksi", Type: FieldTextImage},
				},
			},
		},
	}
}

func TestSubmitTextValueAndImageAttachment(t *testing.T) {
	store := &fakeObjectStore{}
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), store, writer)

	result, err := ing.Submit(SubmitRequest{
		KegiatanID: 1,
		StudentID:  10,
		Groups: []SubmittedGroup{
			{CategoryID: 7, Fields: []SubmittedField{
				{Key: "catatan", Type: "text", Value: "selesai"},
				{Key: "bukti_foto", Type: "image", Value: nil},
			}},
		},
		Attachments: []Attachment{
			{CategoryID: 7, FieldKey: "bukti_foto", Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("fake")},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if result.InsertedCount != 1 {
		t.Errorf("expected inserted_count 1 (image fields have no value row), got %d", result.InsertedCount)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
	if len(writer.values) != 1 || writer.values[0].FieldID != 71 {
		t.Fatalf("expected one value row for field 71, got %+v", writer.values)
	}
	if writer.values[0].Value == nil || *writer.values[0].Value != "selesai" {
		t.Errorf("unexpected stored value %+v", writer.values[0].Value)
	}
	if len(writer.files) != 1 || writer.files[0].FieldID != 72 {
		t.Fatalf("expected one file row for field 72, got %+v", writer.files)
	}
	if writer.files[0].StorageURL == "" || writer.files[0].StoragePublicID == "" {
		t.Error("expected storage handle on the file row")
	}
}

func TestSubmitUnknownFieldWarns(t *testing.T) {
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), &fakeObjectStore{}, writer)

	result, err := ing.Submit(SubmitRequest{
		KegiatanID: 1,
		StudentID:  10,
		Groups: []SubmittedGroup{
			{CategoryID: 7, Fields: []SubmittedField{
				{Key: "catatan", Value: "ok"},
				{Key: "tidak_ada", Value: "dropped"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.InsertedCount != 1 {
		t.Errorf("expected 1 inserted value, got %d", result.InsertedCount)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "tidak_ada") {
		t.Errorf("expected unknown-field warning, got %v", result.Warnings)
	}
}

func TestSubmitOversizedAttachmentWarns(t *testing.T) {
	store := &fakeObjectStore{}
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), store, writer)

	big := make([]byte, 6*1024*1024)
	result, err := ing.Submit(SubmitRequest{
		KegiatanID: 1,
		StudentID:  10,
		Groups: []SubmittedGroup{
			{CategoryID: 7, Fields: []SubmittedField{{Key: "catatan", Value: "ada"}}},
		},
		Attachments: []Attachment{
			{CategoryID: 7, FieldKey: "bukti_foto", Filename: "huge.jpg", Data: big},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.InsertedCount != 1 {
		t.Errorf("oversized attachment must not block values, got inserted_count %d", result.InsertedCount)
	}
	if len(store.uploads) != 0 {
		t.Errorf("oversized attachment must not be uploaded, got %v", store.uploads)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "too large") {
		t.Errorf("expected size warning, got %v", result.Warnings)
	}
}

func TestSubmitUploadFailureIsIsolated(t *testing.T) {
	store := &fakeObjectStore{failFor: map[string]bool{"broken.jpg": true}}
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), store, writer)

	result, err := ing.Submit(SubmitRequest{
		KegiatanID: 1,
		StudentID:  10,
		Groups: []SubmittedGroup{
			{CategoryID: 7, Fields: []SubmittedField{{Key: "catatan", Value: "tetap ada"}}},
		},
		Attachments: []Attachment{
			{CategoryID: 7, FieldKey: "bukti_foto", Filename: "broken.jpg", Data: []byte("x")},
			{CategoryID: 7, FieldKey: "bukti_foto", Filename: "fine.png", Data: []byte("y")},
		},
	})
	if err != nil {
		t.Fatalf("a failed upload must not fail the submission: %v", err)
	}
	if len(writer.values) != 1 {
		t.Errorf("values must persist despite upload failure, got %d", len(writer.values))
	}
	if len(writer.files) != 1 || writer.files[0].Filename != "fine.png" {
		t.Errorf("expected only the good upload recorded, got %+v", writer.files)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "broken.jpg") {
		t.Errorf("expected upload warning, got %v", result.Warnings)
	}
}

func TestSubmitUnsupportedExtensionWarns(t *testing.T) {
	store := &fakeObjectStore{}
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), store, writer)

	result, err := ing.Submit(SubmitRequest{
		KegiatanID: 1,
		StudentID:  10,
		Attachments: []Attachment{
			{CategoryID: 7, FieldKey: "bukti_foto", Filename: "script.exe", Data: []byte("x")},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(store.uploads) != 0 {
		t.Errorf("unsupported extension must not be uploaded, got %v", store.uploads)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "unsupported") {
		t.Errorf("expected unsupported-type warning, got %v", result.Warnings)
	}
}

func TestSubmitValueNormalization(t *testing.T) {
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), &fakeObjectStore{}, writer)

	_, err := ing.Submit(SubmitRequest{
		KegiatanID: 1,
		StudentID:  10,
		Groups: []SubmittedGroup{
			{CategoryID: 7, Fields: []SubmittedField{
				{Key: "pilihan", Value: []interface{}{"a", "b", float64(3)}},
				{Key: "refleksi", Value: map[string]interface{}{"text": "catatan refleksi", "imageUrl": "ignored"}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(writer.values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(writer.values))
	}

	byField := make(map[uint]string)
	for _, v := range writer.values {
		if v.Value != nil {
			byField[v.FieldID] = *v.Value
		}
	}
	if byField[73] != "a,b,3" {
		t.Errorf("multiselect should comma-join, got %q", byField[73])
	}
	if byField[74] != "catatan refleksi" {
		t.Errorf("text_image should keep only the text part, got %q", byField[74])
	}
}

func TestSubmitDefaultName(t *testing.T) {
	writer := &fakeWriter{}
	ing := newTestIngestor(dailySchema(), &fakeObjectStore{}, writer)

	result, err := ing.Submit(SubmitRequest{KegiatanID: 1, StudentID: 10})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.ActivityID == 0 {
		t.Error("expected a persisted activity id")
	}

	activity, err := ing.gate.store.FindByDay(1, 10, ing.gate.Today())
	if err != nil || activity == nil {
		t.Fatalf("expected persisted activity, err=%v", err)
	}
	if !strings.HasPrefix(activity.Name, "Kegiatan Harian - ") {
		t.Errorf("expected generated name with kegiatan prefix, got %q", activity.Name)
	}
}

func TestSubmitRequiresKegiatan(t *testing.T) {
	ing := newTestIngestor(dailySchema(), &fakeObjectStore{}, &fakeWriter{})
	if _, err := ing.Submit(SubmitRequest{StudentID: 10}); !errors.Is(err, ErrKegiatanRequired) {
		t.Errorf("expected ErrKegiatanRequired, got %v", err)
	}
}

func TestSubmitUnknownKegiatan(t *testing.T) {
	ing := newTestIngestor(&fakeSchemaSource{nameErr: ErrKegiatanNotFound}, &fakeObjectStore{}, &fakeWriter{})
	if _, err := ing.Submit(SubmitRequest{KegiatanID: 99, StudentID: 10}); !errors.Is(err, ErrKegiatanNotFound) {
		t.Errorf("expected ErrKegiatanNotFound, got %v", err)
	}
}

func TestSubmitSecondSameDayRejected(t *testing.T) {
	ing := newTestIngestor(dailySchema(), &fakeObjectStore{}, &fakeWriter{})

	if _, err := ing.Submit(SubmitRequest{KegiatanID: 1, StudentID: 10, Name: "first"}); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	_, err := ing.Submit(SubmitRequest{KegiatanID: 1, StudentID: 10, Name: "second"})
	var already *AlreadySubmittedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadySubmittedError, got %v", err)
	}
	if fmt.Sprint(already.LastSubmittedAt) == fmt.Sprint(time.Time{}) {
		t.Error("expected the prior submission timestamp")
	}
}

package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"g7kaih_go/database"
	"g7kaih_go/middleware"
	"g7kaih_go/models"
	"g7kaih_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AktivitasController owns the submission intake and read endpoints.
type AktivitasController struct {
	ingestor *services.Ingestor
	gate     *services.SubmissionGate
	window   *services.WindowService
}

func NewAktivitasController(ingestor *services.Ingestor, gate *services.SubmissionGate, window *services.WindowService) *AktivitasController {
	return &AktivitasController{ingestor: ingestor, gate: gate, window: window}
}

type submitBody struct {
	KegiatanID uint                      `json:"kegiatanid"`
	Name       string                    `json:"name"`
	Content    string                    `json:"content"`
	Values     []services.SubmittedGroup `json:"values"`
}

// CreateAktivitas ingests one student submission. The body is either JSON or
// multipart form data with a `values` JSON part plus `file:{categoryid}:{key}`
// file parts.
func (ac *AktivitasController) CreateAktivitas(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	open, err := ac.window.IsOpen()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check submission window",
		})
	}
	if !open {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Submission window is closed",
		})
	}

	req, parseErr := ac.parseSubmitRequest(c)
	if parseErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": parseErr.Error(),
		})
	}
	req.StudentID = profile.ID

	result, err := ac.ingestor.Submit(*req)
	if err != nil {
		return submitErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "Aktivitas submitted",
		"activityid":     result.ActivityID,
		"inserted_count": result.InsertedCount,
		"warnings":       result.Warnings,
	})
}

func submitErrorResponse(c *fiber.Ctx, err error) error {
	var already *services.AlreadySubmittedError
	switch {
	case errors.Is(err, services.ErrKegiatanRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kegiatanid is required",
		})
	case errors.Is(err, services.ErrKegiatanNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Kegiatan not found",
		})
	case errors.As(err, &already):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":             "Already submitted today",
			"last_submitted_at": already.LastSubmittedAt,
		})
	default:
		logrus.WithError(err).Error("submission failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to submit aktivitas",
		})
	}
}

func (ac *AktivitasController) parseSubmitRequest(c *fiber.Ctx) (*services.SubmitRequest, error) {
	contentType := c.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return parseMultipartSubmit(c)
	}

	var body submitBody
	if err := c.BodyParser(&body); err != nil {
		return nil, errors.New("invalid request body")
	}
	return &services.SubmitRequest{
		KegiatanID: body.KegiatanID,
		Name:       body.Name,
		Content:    body.Content,
		Groups:     body.Values,
	}, nil
}

func parseMultipartSubmit(c *fiber.Ctx) (*services.SubmitRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.New("invalid multipart form")
	}

	req := &services.SubmitRequest{}

	if raw := formValue(form.Value, "kegiatanid"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, errors.New("invalid kegiatanid")
		}
		req.KegiatanID = uint(id)
	}
	req.Name = formValue(form.Value, "name")
	req.Content = formValue(form.Value, "content")

	if raw := formValue(form.Value, "values"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Groups); err != nil {
			return nil, errors.New("invalid values payload")
		}
	}

	// File parts are named file:{categoryid}:{fieldkey}. Unparseable part
	// names are dropped here; unknown fields are warned about downstream.
	for name, headers := range form.File {
		categoryID, fieldKey, ok := parseFilePartName(name)
		if !ok {
			continue
		}
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				logrus.WithError(err).WithField("part", name).Warn("failed to open uploaded part")
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				logrus.WithError(err).WithField("part", name).Warn("failed to read uploaded part")
				continue
			}
			req.Attachments = append(req.Attachments, services.Attachment{
				CategoryID:  categoryID,
				FieldKey:    fieldKey,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	return req, nil
}

func formValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func parseFilePartName(name string) (uint, string, bool) {
	parts := strings.SplitN(name, ":", 3)
	if len(parts) != 3 || parts[0] != "file" || parts[2] == "" {
		return 0, "", false
	}
	categoryID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint(categoryID), parts[2], true
}

// GetAktivitas lists submissions. Students see only their own; guru, guru
// wali and admin see everything, optionally filtered.
func (ac *AktivitasController) GetAktivitas(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	query := database.DB.Model(&models.Aktivitas{}).Preload("Kegiatan")

	switch profile.Role {
	case "siswa":
		query = query.Where("user_id = ?", profile.ID)
	case "orangtua":
		if profile.ParentOfUserID == nil {
			return c.JSON(fiber.Map{"aktivitas": []models.Aktivitas{}})
		}
		query = query.Where("user_id = ?", *profile.ParentOfUserID)
	default:
		if userID := c.Query("userid"); userID != "" {
			query = query.Where("user_id = ?", userID)
		}
	}

	if kegiatanID := c.Query("kegiatanid"); kegiatanID != "" {
		query = query.Where("kegiatan_id = ?", kegiatanID)
	}
	if date := c.Query("date"); date != "" {
		query = query.Where("submitted_date = ?", date)
	}

	var activities []models.Aktivitas
	if err := query.Order("created_at DESC").Find(&activities).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch aktivitas",
		})
	}

	return c.JSON(fiber.Map{
		"aktivitas": attachUsernames(activities),
	})
}

type aktivitasListItem struct {
	models.Aktivitas
	Username string `json:"username"`
}

func attachUsernames(activities []models.Aktivitas) []aktivitasListItem {
	ids := make([]uint, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.UserID)
	}

	nameByID := make(map[uint]string)
	if len(ids) > 0 {
		var profiles []models.UserProfile
		if err := database.DB.Where("id IN ?", ids).Find(&profiles).Error; err == nil {
			for _, p := range profiles {
				nameByID[p.ID] = p.Username
			}
		}
	}

	out := make([]aktivitasListItem, 0, len(activities))
	for _, a := range activities {
		out = append(out, aktivitasListItem{Aktivitas: a, Username: nameByID[a.UserID]})
	}
	return out
}

// GetAktivitasDetail returns one submission with its field values, their
// derived validation status, and attachment metadata.
func (ac *AktivitasController) GetAktivitasDetail(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid aktivitas ID",
		})
	}

	var activity models.Aktivitas
	if err := database.DB.
		Preload("Kegiatan").
		Preload("FieldValues.Field").
		Preload("FieldFiles").
		First(&activity, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Aktivitas not found",
		})
	}

	if !canViewActivity(profile, &activity) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	values := make([]fiber.Map, 0, len(activity.FieldValues))
	for _, fv := range activity.FieldValues {
		values = append(values, fiber.Map{
			"id":                   fv.ID,
			"fieldid":              fv.FieldID,
			"field_key":            fv.Field.FieldKey,
			"label":                fv.Field.Label,
			"type":                 fv.Field.Type,
			"value":                fv.Value,
			"validated_by_teacher": fv.ValidatedByTeacher,
			"validated_by_parent":  fv.ValidatedByParent,
			"validation_status":    models.StatusOf(fv.ValidatedByTeacher, fv.ValidatedByParent),
			"updated_at":           fv.UpdatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"aktivitas":    activity,
		"field_values": values,
		"files":        activity.FieldFiles,
	})
}

// GetAktivitasFiles returns attachment metadata for one submission. The
// storage URL is returned as-is; bytes are served by the object store.
func (ac *AktivitasController) GetAktivitasFiles(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid aktivitas ID",
		})
	}

	var activity models.Aktivitas
	if err := database.DB.First(&activity, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Aktivitas not found",
		})
	}
	if !canViewActivity(profile, &activity) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	var files []models.AktivitasFieldFile
	if err := database.DB.Where("activity_id = ?", activity.ID).Find(&files).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch files",
		})
	}

	return c.JSON(fiber.Map{"files": files})
}

// GetFieldFiles returns attachment metadata for one (activity, field) pair.
func (ac *AktivitasController) GetFieldFiles(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	activityID, err := strconv.ParseUint(c.Params("activityid"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid aktivitas ID",
		})
	}
	fieldID, err := strconv.ParseUint(c.Params("fieldid"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid field ID",
		})
	}

	var activity models.Aktivitas
	if err := database.DB.First(&activity, uint(activityID)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Aktivitas not found",
		})
	}
	if !canViewActivity(profile, &activity) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	var files []models.AktivitasFieldFile
	if err := database.DB.
		Where("activity_id = ? AND field_id = ?", activity.ID, uint(fieldID)).
		Find(&files).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch files",
		})
	}

	return c.JSON(fiber.Map{"files": files})
}

func canViewActivity(profile *models.UserProfile, activity *models.Aktivitas) bool {
	switch profile.Role {
	case "admin", "guru", "guruwali":
		return true
	case "orangtua":
		return profile.ParentOfUserID != nil && *profile.ParentOfUserID == activity.UserID
	default:
		return activity.UserID == profile.ID
	}
}

package controllers

import (
	"fmt"
	"strconv"
	"time"

	"g7kaih_go/config"
	"g7kaih_go/database"
	"g7kaih_go/middleware"
	"g7kaih_go/models"
	"g7kaih_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ReportController serves the aggregated, alias-aware views.
type ReportController struct {
	reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// GetGuruWaliStudents lists the caller's assigned students with aggregated
// activity statistics.
func (rc *ReportController) GetGuruWaliStudents(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	cards, err := rc.reports.StudentsForGuruWali(c.Context(), profile.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to build guru wali student list")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(fiber.Map{"students": cards})
}

// GetAllStudents lists every student with aggregated statistics, for teachers
// and admins.
func (rc *ReportController) GetAllStudents(c *fiber.Ctx) error {
	cards, err := rc.reports.AllStudents(c.Context())
	if err != nil {
		logrus.WithError(err).Error("failed to build student list")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(fiber.Map{"students": cards})
}

// GetDailyInactive lists students with no submission today.
func (rc *ReportController) GetDailyInactive(c *fiber.Ctx) error {
	inactive, err := rc.reports.DailyInactive(c.Context())
	if err != nil {
		logrus.WithError(err).Error("failed to build daily inactive report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch report",
		})
	}

	return c.JSON(fiber.Map{
		"date":     time.Now().In(config.Location()).Format("2006-01-02"),
		"inactive": inactive,
	})
}

// ExportAktivitas streams an Excel workbook of submissions in the requested
// date range.
func (rc *ReportController) ExportAktivitas(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")

	f, err := rc.reports.ExportActivities(from, to)
	if err != nil {
		logrus.WithError(err).Error("failed to build aktivitas export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build export",
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to encode export",
		})
	}

	filename := fmt.Sprintf("aktivitas-%s.xlsx", time.Now().In(config.Location()).Format("20060102"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// GetLinkedStudentActivities is the parent view: the linked student's
// submissions with per-value validation state, filterable by derived status.
func (rc *ReportController) GetLinkedStudentActivities(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}
	if profile.ParentOfUserID == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No linked student",
		})
	}

	filter := c.Query("validation") // pending, teacher, parent, both
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := database.DB.Model(&models.Aktivitas{}).
		Where("user_id = ?", *profile.ParentOfUserID).
		Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch activities",
		})
	}

	var activities []models.Aktivitas
	if err := database.DB.
		Preload("Kegiatan").
		Preload("FieldValues.Field").
		Where("user_id = ?", *profile.ParentOfUserID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&activities).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch activities",
		})
	}

	out := make([]fiber.Map, 0, len(activities))
	for _, a := range activities {
		values := make([]fiber.Map, 0, len(a.FieldValues))
		for _, fv := range a.FieldValues {
			if !matchesValidationFilter(filter, fv) {
				continue
			}
			values = append(values, fiber.Map{
				"id":                   fv.ID,
				"field_key":            fv.Field.FieldKey,
				"label":                fv.Field.Label,
				"value":                fv.Value,
				"validated_by_teacher": fv.ValidatedByTeacher,
				"validated_by_parent":  fv.ValidatedByParent,
				"validation_status":    models.StatusOf(fv.ValidatedByTeacher, fv.ValidatedByParent),
			})
		}
		if filter != "" && len(values) == 0 {
			continue
		}
		out = append(out, fiber.Map{
			"activityid":     a.ID,
			"activityname":   a.Name,
			"kegiatanname":   a.Kegiatan.Name,
			"submitted_date": a.SubmittedDate,
			"created_at":     a.CreatedAt,
			"field_values":   values,
		})
	}

	return c.JSON(fiber.Map{
		"activities": out,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func matchesValidationFilter(filter string, fv models.AktivitasFieldValue) bool {
	switch filter {
	case "pending":
		return !fv.ValidatedByTeacher && !fv.ValidatedByParent
	case "teacher":
		return fv.ValidatedByTeacher
	case "parent":
		return fv.ValidatedByParent
	case "both":
		return fv.ValidatedByTeacher && fv.ValidatedByParent
	default:
		return true
	}
}

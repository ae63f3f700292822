package controllers

import (
	"strconv"

	"g7kaih_go/database"
	"g7kaih_go/middleware"
	"g7kaih_go/models"
	"g7kaih_go/services"

	"github.com/gofiber/fiber/v2"
)

// KegiatanController serves the activity templates and their form schemas.
type KegiatanController struct {
	schemas services.SchemaSource
	gate    *services.SubmissionGate
	window  *services.WindowService
}

func NewKegiatanController(schemas services.SchemaSource, gate *services.SubmissionGate, window *services.WindowService) *KegiatanController {
	return &KegiatanController{schemas: schemas, gate: gate, window: window}
}

// GetKegiatan lists activity templates. For students the list is gated by the
// global submission window so a closed system shows as such up front.
func (kc *KegiatanController) GetKegiatan(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	windowOpen := true
	if profile.Role == "siswa" {
		windowOpen, err = kc.window.IsOpen()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check submission window",
			})
		}
		if !windowOpen {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":       "Submission window is closed",
				"window_open": false,
			})
		}
	}

	query := database.DB.Model(&models.Kegiatan{})
	if profile.Role != "admin" {
		query = query.Where("active = ?", true)
	}

	var kegiatan []models.Kegiatan
	if err := query.Order("name").Find(&kegiatan).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch kegiatan",
		})
	}

	return c.JSON(fiber.Map{
		"kegiatan":    kegiatan,
		"window_open": windowOpen,
	})
}

// GetKegiatanDetail returns one template with its categories and normalized
// field schemas, multiselect options already resolved for rendering.
func (kc *KegiatanController) GetKegiatanDetail(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid kegiatan ID",
		})
	}

	name, err := kc.schemas.KegiatanName(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Kegiatan not found",
		})
	}

	schemas, err := kc.schemas.CategorySchemas(uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch kegiatan schema",
		})
	}

	categories := make([]fiber.Map, 0, len(schemas))
	for _, cs := range schemas {
		fields := make([]fiber.Map, 0, len(cs.Fields))
		for _, f := range cs.Fields {
			entry := fiber.Map{
				"fieldid":  f.ID,
				"key":      f.Key,
				"label":    f.Label,
				"type":     f.Type,
				"required": f.Required,
				"order":    f.Order,
			}
			if f.Type == services.FieldMultiselect {
				entry["options"] = services.ResolveOptions(f)
			}
			fields = append(fields, entry)
		}
		categories = append(categories, fiber.Map{
			"categoryid":   cs.CategoryID,
			"categoryname": cs.CategoryName,
			"fields":       fields,
		})
	}

	return c.JSON(fiber.Map{
		"kegiatanid":   uint(id),
		"kegiatanname": name,
		"categories":   categories,
	})
}

// CheckSubmissionWindow reports whether the current student may submit for
// this kegiatan today. Advisory only; the insert re-checks.
func (kc *KegiatanController) CheckSubmissionWindow(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid kegiatan ID",
		})
	}

	open, err := kc.window.IsOpen()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check submission window",
		})
	}
	if !open {
		return c.JSON(fiber.Map{
			"can_submit":  false,
			"window_open": false,
		})
	}

	window, err := kc.gate.CheckWindow(uint(id), profile.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check submission window",
		})
	}

	resp := fiber.Map{
		"can_submit":  window.CanSubmit,
		"window_open": true,
	}
	if window.LastSubmittedAt != nil {
		resp["last_submitted_at"] = window.LastSubmittedAt
	}
	return c.JSON(resp)
}


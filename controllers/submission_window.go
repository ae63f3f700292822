package controllers

import (
	"g7kaih_go/middleware"
	"g7kaih_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// SubmissionWindowController manages the global intake toggle.
type SubmissionWindowController struct {
	window *services.WindowService
}

func NewSubmissionWindowController(window *services.WindowService) *SubmissionWindowController {
	return &SubmissionWindowController{window: window}
}

// GetWindow reports the current global window state.
func (wc *SubmissionWindowController) GetWindow(c *fiber.Ctx) error {
	open, err := wc.window.IsOpen()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read submission window",
		})
	}
	return c.JSON(fiber.Map{"is_open": open})
}

type windowBody struct {
	IsOpen *bool `json:"is_open"`
}

// SetWindow flips the global window. Admin only (enforced by route
// middleware).
func (wc *SubmissionWindowController) SetWindow(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	var body windowBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if body.IsOpen == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "is_open is required",
		})
	}

	setting, err := wc.window.Set(*body.IsOpen, profile.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to update submission window")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update submission window",
		})
	}

	logrus.WithFields(logrus.Fields{
		"is_open":    setting.IsOpen,
		"updated_by": profile.ID,
	}).Info("submission window updated")

	return c.JSON(fiber.Map{
		"message": "Submission window updated",
		"is_open": setting.IsOpen,
	})
}

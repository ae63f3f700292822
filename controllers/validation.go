package controllers

import (
	"errors"

	"g7kaih_go/middleware"
	"g7kaih_go/models"
	"g7kaih_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ValidationController exposes the field-value acknowledgment toggles.
type ValidationController struct {
	validation *services.ValidationService
}

func NewValidationController(validation *services.ValidationService) *ValidationController {
	return &ValidationController{validation: validation}
}

type validateBody struct {
	FieldValueID uint  `json:"field_value_id"`
	Validated    *bool `json:"validated"`
}

// Validate sets the caller's validation flag on one field value. Teachers set
// the teacher flag, parents the parent flag; the route's role middleware
// guarantees the caller is one of the two.
func (vc *ValidationController) Validate(c *fiber.Ctx) error {
	profile, err := middleware.GetCurrentProfile(c)
	if err != nil {
		return err
	}

	var body validateBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if body.FieldValueID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "field_value_id is required",
		})
	}
	if body.Validated == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validated is required",
		})
	}

	var fv *models.AktivitasFieldValue
	switch profile.Role {
	case "guru":
		fv, err = vc.validation.SetTeacherValidation(body.FieldValueID, *body.Validated)
	case "orangtua":
		if profile.ParentOfUserID == nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "No linked student",
			})
		}
		fv, err = vc.validation.SetParentValidation(*profile.ParentOfUserID, body.FieldValueID, *body.Validated)
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	if err != nil {
		switch {
		case errors.Is(err, services.ErrFieldValueNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Field value not found",
			})
		case errors.Is(err, services.ErrNotLinkedStudent):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Field value does not belong to your linked student",
			})
		default:
			logrus.WithError(err).Error("validation update failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update validation",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message":           "Validation updated",
		"field_value":       fv,
		"validation_status": vc.validation.StatusOf(fv),
	})
}

package controllers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/access"
	"github.com/mikolohq/mikolo/internal/pkg/usercontext"
)

var validate = validator.New()

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// requireActor returns the authenticated actor or writes a 401.
func requireActor(c *fiber.Ctx) (access.ActorContext, bool) {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		_ = jsonError(c, fiber.StatusUnauthorized, "unauthorized", "authentication required")
		return access.ActorContext{}, false
	}
	return uc.Actor(), true
}

// authorizeEventOwner allows only the event owner or an administrator to
// touch billing state. Writes the error response itself on denial.
func authorizeEventOwner(c *fiber.Ctx, db *gorm.DB, actor access.ActorContext, eventID uint) bool {
	if actor.IsAdmin {
		return true
	}
	var event models.Event
	if err := db.WithContext(c.UserContext()).First(&event, eventID).Error; err != nil {
		_ = jsonError(c, fiber.StatusNotFound, "event_not_found", "event not found")
		return false
	}
	if event.OwnerAccountID != actor.AccountID {
		_ = jsonError(c, fiber.StatusForbidden, "forbidden", "only the event owner can manage the subscription")
		return false
	}
	return true
}

// bodyParserAndValidate decodes the JSON body and runs struct validation.
func bodyParserAndValidate(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

// StatusClientClosedRequest is nginx's 499, used for cancelled uploads.
const StatusClientClosedRequest = 499

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	switch t := c.Locals("userId").(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	default:
		return uuid.Nil, fiber.ErrUnauthorized
	}
}

// actorFrom builds the workflow actor from the JWT locals.
func actorFrom(c *fiber.Ctx) (workflow.Actor, error) {
	uid, err := getUserUUID(c)
	if err != nil || uid == uuid.Nil {
		return workflow.Actor{}, fiber.ErrUnauthorized
	}
	role, _ := c.Locals("role").(string)
	return workflow.Actor{ID: uid, Role: models.Role(role)}, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func ok(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
		"code":    string(workflow.KindValidation),
	})
}

// statusFor maps a workflow error to its HTTP status.
func statusFor(we *workflow.Error) int {
	switch we.Kind {
	case workflow.KindValidation:
		return fiber.StatusBadRequest
	case workflow.KindConflict:
		return fiber.StatusConflict
	case workflow.KindNotFound:
		return fiber.StatusNotFound
	case workflow.KindForbidden:
		return fiber.StatusForbidden
	case workflow.KindPartial:
		return fiber.StatusMultiStatus
	case workflow.KindStorage:
		switch we.Cause {
		case workflow.CausePayloadTooLarge:
			return fiber.StatusRequestEntityTooLarge
		case workflow.CauseTimeout:
			return fiber.StatusGatewayTimeout
		case workflow.CauseCancelled:
			return StatusClientClosedRequest
		}
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// respondError renders every failure in the same envelope: success=false,
// message, code and, when known, the offending field and storage cause.
// Partial failures also carry the committed entity in data.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message, "code": "http"})
	}

	var we *workflow.Error
	if !errors.As(err, &we) {
		log.Error("unexpected handler error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "internal server error",
			"code":    "internal",
		})
	}

	body := fiber.Map{
		"success": false,
		"message": we.Message,
		"code":    string(we.Kind),
	}
	if we.Field != "" {
		body["field"] = we.Field
	}
	if we.Cause != "" {
		body["cause"] = string(we.Cause)
	}
	if we.Kind == workflow.KindPartial && we.Committed != nil {
		body["data"] = we.Committed
	}
	return c.Status(statusFor(we)).JSON(body)
}

// ErrorHandler is the app-level fallback for errors handlers return
// without rendering, e.g. from middleware.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}

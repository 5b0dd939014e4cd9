package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

type ReviewHandler struct {
	Svc *workflow.Service
	Log *zap.Logger
}

func NewReviewHandler(svc *workflow.Service, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{Svc: svc, Log: log}
}

func (h *ReviewHandler) Routes(r fiber.Router) {
	r.Post("/works/:id/reviews", h.Submit)
	r.Post("/works/:id/reviews/preview", h.Preview)
}

func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req workflow.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	res, err := h.Svc.Reviews.SubmitReview(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Review saved", res)
}

// Preview returns the unconfirmed projection of a review. It is marked
// pending and nothing is written.
func (h *ReviewHandler) Preview(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req workflow.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	pr, err := h.Svc.PendingReview(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", pr)
}

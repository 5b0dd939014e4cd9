package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/middleware"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

type DashboardHandler struct {
	Svc *workflow.Service
	Log *zap.Logger
}

func NewDashboardHandler(svc *workflow.Service, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{Svc: svc, Log: log}
}

func (h *DashboardHandler) Routes(r fiber.Router) {
	g := r.Group("/student", middleware.RequireRoles("student"))
	g.Get("/dashboard", h.Get)
}

// Get returns the student's works (paginated, optional ?status=), their
// review rollup and attested earnings.
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	status := models.WorkStatus(c.Query("status"))

	d, err := h.Svc.StudentDashboard(c.UserContext(), actor, status, page, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", d)
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

type ProjectHandler struct {
	Svc *workflow.Service
	Log *zap.Logger
}

func NewProjectHandler(svc *workflow.Service, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{Svc: svc, Log: log}
}

func (h *ProjectHandler) Routes(r fiber.Router) {
	g := r.Group("/projects")
	g.Post("/", h.Submit)
	g.Get("/:id", h.Get)
	g.Get("/:id/history", h.History)
	g.Patch("/:id/status", h.UpdateStatus)
	g.Post("/:id/objection", h.RaiseObjection)
	g.Post("/:id/objection/resolve", h.ResolveObjection)
	g.Post("/:id/reject", h.Reject)
	g.Post("/:id/communications", h.AddCommunication)
	g.Post("/:id/work", h.CreateWork)
	g.Get("/:id/work", h.GetWork)
}

func (h *ProjectHandler) Submit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req workflow.ProjectDraft
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	p, err := h.Svc.Lifecycle.SubmitProject(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusCreated, "Project submitted", p)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Svc.GetProject(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", p)
}

func (h *ProjectHandler) History(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	hist, err := h.Svc.ListHistory(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", hist)
}

// UpdateStatus handles accept, withdraw and dispute. An accept whose work
// record could not be created still answers 200; the client retries with
// POST /projects/:id/work.
func (h *ProjectHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req workflow.StatusChange
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.Svc.Lifecycle.UpdateStatus(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	body := fiber.Map{"success": true, "data": res}
	if res.WorkErr != nil {
		body["message"] = "Project accepted, but the work record could not be created. Please retry."
		body["work_error"] = res.WorkErr.Error()
	}
	return c.JSON(body)
}

func (h *ProjectHandler) RaiseObjection(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req workflow.Objection
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	p, err := h.Svc.Lifecycle.RaiseObjection(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Objection raised", p)
}

func (h *ProjectHandler) ResolveObjection(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Svc.Lifecycle.ResolveObjection(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Objection resolved", p)
}

func (h *ProjectHandler) Reject(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req workflow.Rejection
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	p, err := h.Svc.Lifecycle.Reject(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Project rejected", p)
}

func (h *ProjectHandler) AddCommunication(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Message     string             `json:"message"`
		MessageType models.MessageType `json:"message_type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(string(req.MessageType)) == "" {
		req.MessageType = models.MessageGeneral
	}
	p, err := h.Svc.Lifecycle.AddCommunication(c.UserContext(), actor, id, req.Message, req.MessageType)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusCreated, "", p)
}

func (h *ProjectHandler) CreateWork(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.Svc.Lifecycle.CreateWorkFromProject(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", w)
}

// GetWork answers data=null while the project has no work record.
func (h *ProjectHandler) GetWork(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.Svc.GetWorkByProject(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", w)
}

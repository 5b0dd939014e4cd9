package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/middleware"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

// Register mounts the authenticated workflow API under /api.
func Register(app *fiber.App, svc *workflow.Service, jwtSecret string, log *zap.Logger) {
	api := app.Group("/api",
		middleware.JWTFromCookie(jwtSecret),
		middleware.AttachJWTLocals(),
	)

	NewProjectHandler(svc, log).Routes(api)
	NewWorkHandler(svc, log).Routes(api)
	NewReviewHandler(svc, log).Routes(api)
	NewDashboardHandler(svc, log).Routes(api)
}

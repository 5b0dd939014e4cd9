package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
)

// FileHandler serves local-storage downloads. The token is the only
// credential: it encodes the object key and its expiry.
type FileHandler struct {
	Local *storage.Local
	Log   *zap.Logger
}

func (h *FileHandler) Serve(c *fiber.Ctx) error {
	p, err := h.Local.Resolve(c.Params("token"))
	if err != nil {
		h.Log.Debug("file token rejected", zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "File not found or link expired",
			"code":    "not_found",
		})
	}
	return c.SendFile(p)
}

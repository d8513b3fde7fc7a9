package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/service"
)

// CronHandler exposes the scheduled-post processor to the external scheduler.
type CronHandler struct {
	proc service.ProcessorService
	cfg  config.Config
}

func NewCronHandler(cfg config.Config, proc service.ProcessorService) *CronHandler {
	return &CronHandler{proc: proc, cfg: cfg}
}

// ProcessScheduled runs one processing tick. Guarded by the shared cron
// secret so the spend-bearing provider calls cannot be triggered publicly;
// the check only applies when a secret is configured.
func (h *CronHandler) ProcessScheduled(c *fiber.Ctx) error {
	if h.cfg.CronSecret != "" && c.Get("x-cron-secret") != h.cfg.CronSecret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	summary, err := h.proc.ProcessDue(c.Context())
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Processing tick failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

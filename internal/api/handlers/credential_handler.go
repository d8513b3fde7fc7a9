package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/service"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

type CredentialHandler struct {
	s service.CredentialService
}

func NewCredentialHandler(service service.CredentialService) *CredentialHandler {
	return &CredentialHandler{s: service}
}

// ValidateCredential checks a secret bundle against the platform and stores
// the outcome. An invalid credential is a 200 with is_valid=false; only
// transport and auth problems produce non-2xx responses.
func (h *CredentialHandler) ValidateCredential(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CredentialValidationRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if !models.IsValidPlatform(req.Platform) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	validation, err := h.s.Validate(c.Context(), userID, req.Platform, &req.Credentials)
	if err != nil {
		if errors.Is(err, service.ErrConnection) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Unable to reach the platform",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to validate credentials",
		})
	}

	return c.Status(fiber.StatusOK).JSON(validation)
}

func (h *CredentialHandler) ListCredentials(c *fiber.Ctx) error {
	userID := GetUserID(c)

	creds, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch connected accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(creds)
}

func (h *CredentialHandler) RemoveCredential(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Query("platform")

	err := h.s.Remove(c.Context(), userID, platform)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to remove credential",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

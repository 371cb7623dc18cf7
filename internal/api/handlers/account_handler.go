package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/igscheduler/internal/service"
	"github.com/maheshrc27/igscheduler/internal/transfer"
)

type AccountHandler struct {
	s service.CredentialService
}

func NewAccountHandler(service service.CredentialService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) SaveAccount(c *fiber.Ctx) error {
	var cc transfer.CredentialCreation
	if err := c.BodyParser(&cc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.s.Save(c.Context(), &cc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

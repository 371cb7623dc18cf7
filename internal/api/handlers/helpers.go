package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/igscheduler/internal/models"
	"github.com/maheshrc27/igscheduler/internal/service"
)

// errorStatus maps service errors to the HTTP status returned to the caller.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrPostNotRetryable), errors.Is(err, service.ErrPostInProgress):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyUpload),
		errors.Is(err, service.ErrUnsupportedFile),
		errors.Is(err, models.ErrUnknownPostType),
		errors.Is(err, models.ErrMissingAccount),
		errors.Is(err, models.ErrMissingCaption),
		errors.Is(err, models.ErrMissingSchedule),
		errors.Is(err, models.ErrMediaCount),
		errors.Is(err, models.ErrMediaURLs),
		errors.Is(err, models.ErrEmptyMediaURL):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

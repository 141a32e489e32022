package handlers

import (
	"errors"
	"fmt"
	"log"

	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps a service error onto its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrBusinessRule):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError answers {success: false, message}. Only domain error messages reach the
// client; anything else is logged and reported generically.
func respondError(c *fiber.Ctx, action string, err error) error {
	status := statusFor(err)
	message := "Internal server error"
	var domainErr *services.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	if status >= fiber.StatusInternalServerError {
		log.Printf("ERROR: %s: %v", action, err)
	} else {
		log.Printf("%s: %v", action, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// parseBody binds and validates the request body. It writes the error response itself
// and reports false when the handler should stop.
func parseBody(c *fiber.Ctx, validate *validator.Validate, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return false, badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, badRequest(c, "Invalid request body")
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}

package handlers

import (
	"bazaar/internal/middleware"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles HTTP requests that talk to the payment gateway.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the payment routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	paymentRoutes := router.Group("/payments", auth)
	paymentRoutes.Post("/intent", h.HandleCreateIntent)
}

// IntentRequest is the amount the buyer is about to pay.
type IntentRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3"`
}

// HandleCreateIntent opens a card payment and returns its client secret.
func (h *PaymentHandler) HandleCreateIntent(c *fiber.Ctx) error {
	var req IntentRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	intent, err := h.service.CreateIntent(c.UserContext(), middleware.CurrentPrincipal(c), req.Amount, req.Currency)
	if err != nil {
		return respondError(c, "Error creating payment intent", err)
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
	})
}

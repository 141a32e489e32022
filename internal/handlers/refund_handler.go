package handlers

import (
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RefundHandler handles HTTP requests for cancellations and refunds.
type RefundHandler struct {
	service  *services.RefundService
	validate *validator.Validate
}

// NewRefundHandler creates a new RefundHandler.
func NewRefundHandler(service *services.RefundService) *RefundHandler {
	return &RefundHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the refund routes with the Fiber app.
func (h *RefundHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	refundRoutes := router.Group("/refunds", auth)
	refundRoutes.Get("/me", h.HandleGetMyRefunds)
	refundRoutes.Get("/shop", middleware.RequireRole(models.RoleSeller), h.HandleGetShopRefunds)
	refundRoutes.Post("/:orderId", h.HandleRequestRefund)
	refundRoutes.Patch("/:id/status", middleware.RequireRole(models.RoleSeller, models.RoleAdmin), h.HandleUpdateRefundStatus)
}

// RefundRequest carries the buyer's reason for cancelling.
type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// HandleRequestRefund cancels an order and, for card payments, opens a refund.
func (h *RefundHandler) HandleRequestRefund(c *fiber.Ctx) error {
	var req RefundRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	result, err := h.service.RequestRefund(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("orderId"), req.Reason)
	if err != nil {
		return respondError(c, "Error requesting refund for order "+c.Params("orderId"), err)
	}

	if result.Refund == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Order cancelled successfully",
			"order":   result.Order,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order cancelled and refund requested",
		"order":   result.Order,
		"refund":  result.Refund,
	})
}

// StatusRequest carries a target status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateRefundStatus moves a refund on behalf of the seller.
func (h *RefundHandler) HandleUpdateRefundStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	refund, err := h.service.UpdateRefundStatus(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), models.RefundStatus(req.Status))
	if err != nil {
		return respondError(c, "Error updating refund "+c.Params("id"), err)
	}
	return c.JSON(fiber.Map{"success": true, "refund": refund})
}

// HandleGetMyRefunds lists the caller's refunds.
func (h *RefundHandler) HandleGetMyRefunds(c *fiber.Ctx) error {
	refunds, err := h.service.ListBuyerRefunds(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error listing buyer refunds", err)
	}
	return c.JSON(fiber.Map{"success": true, "refunds": refunds})
}

// HandleGetShopRefunds lists the refunds opened on the seller's orders.
func (h *RefundHandler) HandleGetShopRefunds(c *fiber.Ctx) error {
	refunds, err := h.service.ListShopRefunds(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error listing shop refunds", err)
	}
	return c.JSON(fiber.Map{"success": true, "refunds": refunds})
}

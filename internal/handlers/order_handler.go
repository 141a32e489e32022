package handlers

import (
	"fmt"

	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	checkout *services.CheckoutService
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkout *services.CheckoutService, service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Post("/", h.HandleCreateOrders)
	orderRoutes.Get("/me", h.HandleGetMyOrders)
	orderRoutes.Get("/shop", middleware.RequireRole(models.RoleSeller), h.HandleGetShopOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id", middleware.RequireRole(models.RoleSeller, models.RoleAdmin), h.HandleUpdateOrder)
	orderRoutes.Delete("/:id", h.HandleDeleteOrder)
	orderRoutes.Post("/:id/items/:productId/review", h.HandleReviewItem)
}

// CreateOrdersRequest is the checkout payload. The client's totals are accepted for
// compatibility but prices are always recomputed from the catalogue.
type CreateOrdersRequest struct {
	Shipping     *models.ShippingInfo `json:"shipping"`
	Payment      *models.PaymentInfo  `json:"payment"`
	Items        []services.CartLine  `json:"items"`
	Subtotal     float64              `json:"subtotal"`
	Tax          float64              `json:"tax"`
	ShippingCost float64              `json:"shippingCost"`
	Total        float64              `json:"total"`
}

// HandleCreateOrders splits the cart into one order per shop.
func (h *OrderHandler) HandleCreateOrders(c *fiber.Ctx) error {
	var req CreateOrdersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Shipping != nil {
		if err := h.validate.Struct(req.Shipping); err != nil {
			return badRequest(c, "Shipping information is incomplete")
		}
	}

	orders, err := h.checkout.CreateOrders(c.UserContext(), middleware.CurrentPrincipal(c), services.CheckoutRequest{
		IdempotencyKey: c.Get("Idempotency-Key"),
		Shipping:       req.Shipping,
		Payment:        req.Payment,
		Items:          req.Items,
	})
	if err != nil {
		return respondError(c, "Error creating orders", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "orders": orders})
}

// HandleGetMyOrders lists the orders the caller placed.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListBuyerOrders(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error getting buyer orders", err)
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// HandleGetShopOrders lists the orders of the seller's shop.
func (h *OrderHandler) HandleGetShopOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListShopOrders(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error getting shop orders", err)
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrder(c.UserContext(), middleware.CurrentPrincipal(c), orderID)
	if err != nil {
		return respondError(c, "Error getting order by ID "+orderID, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

// HandleUpdateOrder applies a status patch to an order.
func (h *OrderHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var patch services.OrderPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body for order update")
	}

	order, err := h.service.UpdateOrder(c.UserContext(), middleware.CurrentPrincipal(c), orderID, patch)
	if err != nil {
		return respondError(c, "Error updating order "+orderID, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Order %s status updated to %s", order.ID, order.Status),
		"order":   order,
	})
}

// HandleDeleteOrder removes an order.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if err := h.service.DeleteOrder(c.UserContext(), middleware.CurrentPrincipal(c), orderID); err != nil {
		return respondError(c, "Error deleting order "+orderID, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Order deleted successfully"})
}

// ReviewRequest carries a product rating.
type ReviewRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// HandleReviewItem rates a product of a delivered order.
func (h *OrderHandler) HandleReviewItem(c *fiber.Ctx) error {
	var req ReviewRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.ReviewItem(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), c.Params("productId"), req.Rating)
	if err != nil {
		return respondError(c, "Error reviewing item", err)
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

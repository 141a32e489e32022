package handlers

import (
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// WithdrawalHandler handles HTTP requests for seller payouts.
type WithdrawalHandler struct {
	service  *services.SettlementService
	validate *validator.Validate
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(service *services.SettlementService) *WithdrawalHandler {
	return &WithdrawalHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the withdrawal routes with the Fiber app.
func (h *WithdrawalHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	withdrawalRoutes := router.Group("/withdrawals", auth)
	seller := middleware.RequireRole(models.RoleSeller)
	admin := middleware.RequireRole(models.RoleAdmin)

	withdrawalRoutes.Get("/balance", seller, h.HandleGetBalance)
	withdrawalRoutes.Get("/me", seller, h.HandleGetMyWithdrawals)
	withdrawalRoutes.Post("/", seller, h.HandleRequestWithdrawal)
	withdrawalRoutes.Get("/", admin, h.HandleGetWithdrawals)
	withdrawalRoutes.Patch("/:id/status", admin, h.HandleSetWithdrawalStatus)
}

// HandleGetBalance reports how much the seller may withdraw.
func (h *WithdrawalHandler) HandleGetBalance(c *fiber.Ctx) error {
	balance, err := h.service.AvailableBalance(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error computing balance", err)
	}
	return c.JSON(fiber.Map{"success": true, "availableBalance": balance})
}

// HandleRequestWithdrawal opens a payout request.
func (h *WithdrawalHandler) HandleRequestWithdrawal(c *fiber.Ctx) error {
	var req services.WithdrawalRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	withdrawal, err := h.service.RequestWithdrawal(c.UserContext(), middleware.CurrentPrincipal(c), req)
	if err != nil {
		return respondError(c, "Error requesting withdrawal", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "withdrawal": withdrawal})
}

// HandleGetMyWithdrawals lists the seller's payout requests.
func (h *WithdrawalHandler) HandleGetMyWithdrawals(c *fiber.Ctx) error {
	withdrawals, err := h.service.ListShopWithdrawals(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error listing shop withdrawals", err)
	}
	return c.JSON(fiber.Map{"success": true, "withdrawals": withdrawals})
}

// HandleGetWithdrawals lists every payout request, optionally filtered by ?status=.
func (h *WithdrawalHandler) HandleGetWithdrawals(c *fiber.Ctx) error {
	status := models.WithdrawalStatus(c.Query("status"))
	withdrawals, err := h.service.ListWithdrawals(c.UserContext(), middleware.CurrentPrincipal(c), status)
	if err != nil {
		return respondError(c, "Error listing withdrawals", err)
	}
	return c.JSON(fiber.Map{"success": true, "withdrawals": withdrawals})
}

// HandleSetWithdrawalStatus approves or rejects a payout request.
func (h *WithdrawalHandler) HandleSetWithdrawalStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	withdrawal, err := h.service.SetWithdrawalStatus(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), models.WithdrawalStatus(req.Status))
	if err != nil {
		return respondError(c, "Error updating withdrawal "+c.Params("id"), err)
	}
	return c.JSON(fiber.Map{"success": true, "withdrawal": withdrawal})
}

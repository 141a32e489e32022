package handlers

import (
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CouponHandler handles HTTP requests for coupons.
type CouponHandler struct {
	service  *services.CouponService
	validate *validator.Validate
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(service *services.CouponService) *CouponHandler {
	return &CouponHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the coupon routes with the Fiber app.
func (h *CouponHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	couponRoutes := router.Group("/coupons", auth)
	couponRoutes.Post("/apply", h.HandleApplyCoupon)
	couponRoutes.Post("/", middleware.RequireRole(models.RoleSeller), h.HandleCreateCoupon)
	couponRoutes.Get("/shop", middleware.RequireRole(models.RoleSeller), h.HandleGetShopCoupons)
	couponRoutes.Delete("/:id", middleware.RequireRole(models.RoleSeller, models.RoleAdmin), h.HandleDeleteCoupon)
}

// ApplyCouponRequest is what the cart page sends to preview a coupon.
type ApplyCouponRequest struct {
	Code      string  `json:"code" validate:"required"`
	CartTotal float64 `json:"cartTotal" validate:"gte=0"`
}

// HandleApplyCoupon checks a coupon against the cart total without redeeming it.
func (h *CouponHandler) HandleApplyCoupon(c *fiber.Ctx) error {
	var req ApplyCouponRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	application, err := h.service.Apply(c.UserContext(), req.Code, req.CartTotal)
	if err != nil {
		return respondError(c, "Error applying coupon "+req.Code, err)
	}
	return c.JSON(fiber.Map{
		"success":            true,
		"discountPercentage": application.DiscountPercentage,
		"selectedProducts":   application.ProductIDs,
		"shopId":             application.ShopID,
	})
}

// HandleCreateCoupon issues a coupon for the seller's shop.
func (h *CouponHandler) HandleCreateCoupon(c *fiber.Ctx) error {
	var input services.CouponInput
	if ok, err := parseBody(c, h.validate, &input); !ok {
		return err
	}
	coupon, err := h.service.CreateCoupon(c.UserContext(), middleware.CurrentPrincipal(c), input)
	if err != nil {
		return respondError(c, "Error creating coupon", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "coupon": coupon})
}

// HandleGetShopCoupons lists the seller's coupons.
func (h *CouponHandler) HandleGetShopCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.ListShopCoupons(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error listing shop coupons", err)
	}
	return c.JSON(fiber.Map{"success": true, "coupons": coupons})
}

// HandleDeleteCoupon removes a coupon.
func (h *CouponHandler) HandleDeleteCoupon(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteCoupon(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return respondError(c, "Error deleting coupon "+id, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon deleted successfully"})
}

package handlers

import (
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalogue.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes. Browsing is public; changes need a seller.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	seller := middleware.RequireRole(models.RoleSeller, models.RoleAdmin)

	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/shop", auth, middleware.RequireRole(models.RoleSeller), h.HandleGetShopProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", auth, middleware.RequireRole(models.RoleSeller), h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, seller, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, seller, h.HandleDeleteProduct)
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, "Error getting products", err)
	}
	return c.JSON(fiber.Map{"success": true, "products": products})
}

// HandleGetShopProducts retrieves the caller's own catalogue.
func (h *ProductHandler) HandleGetShopProducts(c *fiber.Ctx) error {
	products, err := h.service.ListShopProducts(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, "Error getting shop products", err)
	}
	return c.JSON(fiber.Map{"success": true, "products": products})
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Error getting product "+c.Params("id"), err)
	}
	return c.JSON(fiber.Map{"success": true, "product": product})
}

// HandleCreateProduct adds a product to the seller's shop.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input services.ProductInput
	if ok, err := parseBody(c, h.validate, &input); !ok {
		return err
	}
	product, err := h.service.CreateProduct(c.UserContext(), middleware.CurrentPrincipal(c), input)
	if err != nil {
		return respondError(c, "Error creating product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "product": product})
}

// HandleUpdateProduct replaces the catalogue fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var input services.ProductInput
	if ok, err := parseBody(c, h.validate, &input); !ok {
		return err
	}
	product, err := h.service.UpdateProduct(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), input)
	if err != nil {
		return respondError(c, "Error updating product "+c.Params("id"), err)
	}
	return c.JSON(fiber.Map{"success": true, "product": product})
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return respondError(c, "Error deleting product "+id, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deleted successfully"})
}

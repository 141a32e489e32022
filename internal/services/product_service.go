package services

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// ProductInput carries the catalogue fields a seller controls.
type ProductInput struct {
	Name          string  `json:"name" validate:"required,min=3,max=150"`
	Description   string  `json:"description" validate:"omitempty,max=2000"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	DiscountPrice float64 `json:"discount_price" validate:"gte=0"`
	Stock         int     `json:"stock" validate:"gte=0"`
}

// ProductService handles the catalogue and the inventory ledger.
type ProductService struct {
	repo          repositories.ProductRepository
	allowOversell bool
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, allowOversell bool) *ProductService {
	return &ProductService{
		repo:          repo,
		allowOversell: allowOversell,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return product, nil
}

// ListShopProducts retrieves the caller's own catalogue.
func (s *ProductService) ListShopProducts(ctx context.Context, seller Principal) ([]models.Product, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	return s.repo.ListByShop(ctx, seller.ShopID)
}

// CreateProduct adds a product to the caller's shop.
func (s *ProductService) CreateProduct(ctx context.Context, seller Principal, input ProductInput) (*models.Product, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		ShopID:        seller.ShopID,
		Name:          input.Name,
		Description:   input.Description,
		Price:         round2(input.Price),
		DiscountPrice: round2(input.DiscountPrice),
		Stock:         input.Stock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct changes the catalogue fields of a product the caller owns.
func (s *ProductService) UpdateProduct(ctx context.Context, seller Principal, id string, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !seller.CanManageShop(product.ShopID) {
		return nil, ErrNotShopOwner
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Price = round2(input.Price)
	product.DiscountPrice = round2(input.DiscountPrice)
	product.Stock = input.Stock
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return product, nil
}

// DeleteProduct removes a product the caller owns.
func (s *ProductService) DeleteProduct(ctx context.Context, seller Principal, id string) error {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if !seller.CanManageShop(product.ShopID) {
		return ErrNotShopOwner
	}
	return notFound(s.repo.Delete(ctx, id), ErrProductNotFound)
}

// Reserve takes quantity units of a product out of stock.
func (s *ProductService) Reserve(ctx context.Context, productID string, quantity int) (*models.Product, error) {
	return reserveStock(ctx, s.repo, productID, quantity, s.allowOversell)
}

// reserveStock is the inventory ledger primitive shared by the catalogue and checkout.
func reserveStock(ctx context.Context, repo repositories.ProductRepository, productID string, quantity int, allowOversell bool) (*models.Product, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := repo.Reserve(ctx, productID, quantity, allowOversell)
	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, repositories.ErrInsufficientStock):
		return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
	default:
		return nil, notFound(err, ErrProductNotFound)
	}
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" || input.Price <= 0 || input.Stock < 0 || input.DiscountPrice < 0 {
		return ErrInvalidProduct
	}
	if input.DiscountPrice >= input.Price {
		return fmt.Errorf("%w: discount price must be below price", ErrInvalidProduct)
	}
	return nil
}

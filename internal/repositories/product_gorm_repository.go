package repositories

import (
	"context"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, translate(err))
	}
	return &product, nil
}

// ListByShop retrieves every product owned by shopID.
func (r *GORMProductRepository) ListByShop(ctx context.Context, shopID string) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Order("created_at").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products of shop %s: %w", shopID, err)
	}
	return products, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// Update writes the catalogue fields of a product. The owning shop, sold counter and
// review aggregate are never touched here.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(product).
		Select("name", "description", "price", "discount_price", "stock").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// Reserve implements ProductRepository.
func (r *GORMProductRepository) Reserve(ctx context.Context, id string, quantity int, allowOversell bool) (*models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	updates := map[string]interface{}{
		"sold": gorm.Expr("sold + ?", quantity),
	}
	if allowOversell {
		updates["stock"] = gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", quantity, quantity)
	} else {
		query = query.Where("stock >= ?", quantity)
		updates["stock"] = gorm.Expr("stock - ?", quantity)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reserve %d of product %s: %w", quantity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the product is gone or the stock guard rejected the update.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("product %s cannot cover %d units: %w", id, quantity, ErrInsufficientStock)
	}
	return r.GetByID(ctx, id)
}

// AddReview implements ProductRepository.
func (r *GORMProductRepository) AddReview(ctx context.Context, id string, rating float64) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ratings":        gorm.Expr("(ratings * num_of_reviews + ?) / (num_of_reviews + 1)", rating),
		"num_of_reviews": gorm.Expr("num_of_reviews + 1"),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to add review to product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

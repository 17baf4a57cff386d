// internal/domain/catalog/service.go
package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles product catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	Name         string           `json:"name" binding:"required"`
	Description  string           `json:"description"`
	Laboratory   string           `json:"laboratory"`
	MinStock     int              `json:"min_stock"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
}

// UpdateProductRequest represents product update data
type UpdateProductRequest struct {
	Name         string           `json:"name" binding:"required"`
	Description  string           `json:"description"`
	Laboratory   string           `json:"laboratory"`
	MinStock     int              `json:"min_stock"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Status ProductStatus `form:"status"`
	Search string        `form:"search"`
}

// CreateProduct creates a new catalog entry
func (s *Service) CreateProduct(req *CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, apperrors.NewValidation("name is required")
	}
	if req.MinStock < 0 {
		return nil, apperrors.NewValidation("min_stock must not be negative")
	}
	if err := validatePrices(req.SellingPrice, req.CostPrice); err != nil {
		return nil, err
	}

	var existing Product
	if err := s.db.Where("name = ? AND status = ?", req.Name, ProductStatusActive).First(&existing).Error; err == nil {
		return nil, apperrors.NewConflict("product '%s' already exists", req.Name)
	}

	product := &Product{
		Name:         req.Name,
		Description:  req.Description,
		Laboratory:   req.Laboratory,
		MinStock:     req.MinStock,
		SellingPrice: toNullDecimal(req.SellingPrice),
		CostPrice:    toNullDecimal(req.CostPrice),
		Status:       ProductStatusActive,
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProduct retrieves a product by ID
func (s *Service) GetProduct(productID uint) (*Product, error) {
	var product Product
	if err := s.db.First(&product, productID).Error; err != nil {
		return nil, apperrors.NewNotFound("product", productID)
	}
	return &product, nil
}

// GetProducts retrieves products, newest first, optionally filtered
func (s *Service) GetProducts(req *ProductListRequest) ([]Product, error) {
	query := s.db.Model(&Product{})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		query = query.Where("name LIKE ?", "%"+req.Search+"%")
	}

	var products []Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	return products, nil
}

// UpdateProduct updates catalog fields of a product
func (s *Service) UpdateProduct(productID uint, req *UpdateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, apperrors.NewValidation("name is required")
	}
	if req.MinStock < 0 {
		return nil, apperrors.NewValidation("min_stock must not be negative")
	}
	if err := validatePrices(req.SellingPrice, req.CostPrice); err != nil {
		return nil, err
	}

	var product Product
	if err := s.db.First(&product, productID).Error; err != nil {
		return nil, apperrors.NewNotFound("product", productID)
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Laboratory = req.Laboratory
	product.MinStock = req.MinStock
	product.SellingPrice = toNullDecimal(req.SellingPrice)
	product.CostPrice = toNullDecimal(req.CostPrice)

	if err := s.db.Save(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return &product, nil
}

// ArchiveProduct marks a product as archived. The name is preserved so the
// product can be restored without string surgery.
func (s *Service) ArchiveProduct(productID uint) (*Product, error) {
	var product Product
	if err := s.db.First(&product, productID).Error; err != nil {
		return nil, apperrors.NewNotFound("product", productID)
	}

	if product.IsArchived() {
		return nil, apperrors.NewConflict("product '%s' is already archived", product.Name)
	}

	now := time.Now().UTC()
	product.Status = ProductStatusArchived
	product.ArchivedAt = &now

	if err := s.db.Save(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to archive product: %w", err)
	}

	return &product, nil
}

// RestoreProduct reverses an archive
func (s *Service) RestoreProduct(productID uint) (*Product, error) {
	var product Product
	if err := s.db.First(&product, productID).Error; err != nil {
		return nil, apperrors.NewNotFound("product", productID)
	}

	if !product.IsArchived() {
		return nil, apperrors.NewConflict("product '%s' is not archived", product.Name)
	}

	product.Status = ProductStatusActive
	product.ArchivedAt = nil

	if err := s.db.Save(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to restore product: %w", err)
	}

	return &product, nil
}

// DeleteProduct removes a product and its dependent rows in one
// transaction. Products referenced by sales are protected: deletion is
// rejected with a conflict unless force is set, in which case the sale
// items are removed too.
func (s *Service) DeleteProduct(productID uint, force bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.First(&product, productID).Error; err != nil {
			return apperrors.NewNotFound("product", productID)
		}

		var saleRefs int64
		if err := tx.Table("sale_items").Where("product_id = ?", productID).Count(&saleRefs).Error; err != nil {
			return fmt.Errorf("failed to check sale references: %w", err)
		}

		if saleRefs > 0 && !force {
			return apperrors.NewConflict(
				"product '%s' has %d sale reference(s); archive it instead of deleting", product.Name, saleRefs)
		}

		// Dependent rows go first, in one transaction, so a failure
		// partway leaves nothing orphaned.
		deletions := []string{
			"DELETE FROM sale_items WHERE product_id = ?",
			"DELETE FROM inventory_items WHERE product_id = ?",
			"DELETE FROM alerts WHERE product_id = ?",
			"DELETE FROM stock_movements WHERE product_id = ?",
			"DELETE FROM stock_lots WHERE product_id = ?",
		}
		if saleRefs == 0 {
			deletions = deletions[1:]
		}

		for _, stmt := range deletions {
			if err := tx.Exec(stmt, productID).Error; err != nil {
				return fmt.Errorf("failed to delete dependent rows: %w", err)
			}
		}

		if err := tx.Delete(&Product{}, productID).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		return nil
	})
}

func validatePrices(prices ...*decimal.Decimal) error {
	for _, p := range prices {
		if p != nil && p.IsNegative() {
			return apperrors.NewValidation("prices must not be negative")
		}
	}
	return nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

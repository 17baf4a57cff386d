// internal/domain/sale/service.go
package sale

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles sale business logic
type Service struct {
	db     *gorm.DB
	stock  *stock.Service
	config *config.Config
}

// NewService creates a new sale service
func NewService(db *gorm.DB, stockService *stock.Service, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		stock:  stockService,
		config: cfg,
	}
}

// CreateSaleRequest represents checkout data
type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items" binding:"required,min=1"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
}

// SaleItemRequest represents one requested sale line
type SaleItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// SaleListRequest represents sale list query parameters
type SaleListRequest struct {
	From  time.Time `form:"from" time_format:"2006-01-02"`
	To    time.Time `form:"to" time_format:"2006-01-02"`
	Limit int       `form:"limit,default=100"`
}

// CreateSale validates every line of the request, then commits the
// sale, its items, the FIFO lot depletions and one SALE movement per
// line in a single transaction. A failed line aborts the whole sale.
func (s *Service) CreateSale(req *CreateSaleRequest, userID uint) (*Sale, error) {
	if userID == 0 {
		return nil, &apperrors.UnauthenticatedError{}
	}
	if len(req.Items) == 0 {
		return nil, apperrors.NewValidation("sale requires at least one item")
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentMethodCash
	}
	if paymentMethod != PaymentMethodCash && paymentMethod != PaymentMethodCard {
		return nil, apperrors.NewValidation("unknown payment method '%s'", paymentMethod)
	}

	seen := make(map[uint]bool, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.NewValidation("quantity must be positive for product %d", item.ProductID)
		}
		if seen[item.ProductID] {
			return nil, apperrors.NewValidation("product %d appears more than once", item.ProductID)
		}
		seen[item.ProductID] = true
	}

	created := &Sale{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Validation pass: everything checked before the first mutation.
		products := make(map[uint]*catalog.Product, len(req.Items))
		for _, item := range req.Items {
			var product catalog.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				return apperrors.NewNotFound("product", item.ProductID)
			}
			if product.IsArchived() {
				return apperrors.NewValidation("product '%s' is archived and cannot be sold", product.Name)
			}
			if !product.HasSellingPrice() {
				return apperrors.NewValidation("product '%s' has no selling price", product.Name)
			}

			available, err := onHand(tx, product.ID)
			if err != nil {
				return err
			}
			if available < item.Quantity {
				return &apperrors.InsufficientStockError{
					ProductName: product.Name,
					Available:   available,
					Requested:   item.Quantity,
				}
			}
			products[product.ID] = &product
		}

		sale := &Sale{
			Number:        generateSaleNumber(),
			UserID:        userID,
			Total:         decimal.Zero,
			PaymentMethod: paymentMethod,
		}
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		total := decimal.Zero
		for _, item := range req.Items {
			product := products[item.ProductID]
			unitPrice := product.SellingPrice.Decimal
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

			saleItem := &SaleItem{
				SaleID:    sale.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
				LineTotal: lineTotal,
			}
			if err := tx.Create(saleItem).Error; err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}

			if _, err := s.stock.DepleteFIFO(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}

			movement := &stock.Movement{
				ProductID: item.ProductID,
				UserID:    userID,
				Type:      stock.MovementTypeSale,
				Quantity:  -item.Quantity,
				Reason:    "Sale",
				Reference: sale.Number,
			}
			if err := tx.Create(movement).Error; err != nil {
				return fmt.Errorf("failed to record sale movement: %w", err)
			}

			total = total.Add(lineTotal)
		}

		if err := tx.Model(sale).Update("total", total).Error; err != nil {
			return fmt.Errorf("failed to update sale total: %w", err)
		}
		sale.Total = total

		*created = *sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSale(created.ID)
}

// GetSale retrieves a sale with its items and seller
func (s *Service) GetSale(saleID uint) (*Sale, error) {
	var sale Sale
	if err := s.db.Preload("Items").Preload("Items.Product").Preload("User").
		First(&sale, saleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFound("sale", saleID)
		}
		return nil, fmt.Errorf("failed to retrieve sale: %w", err)
	}
	return &sale, nil
}

// GetSales retrieves sales newest first, optionally bounded by date
func (s *Service) GetSales(req *SaleListRequest) ([]Sale, error) {
	query := s.db.Preload("Items").Preload("Items.Product").Preload("User")

	if !req.From.IsZero() {
		query = query.Where("created_at >= ?", req.From)
	}
	if !req.To.IsZero() {
		query = query.Where("created_at < ?", req.To.AddDate(0, 0, 1))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	var sales []Sale
	if err := query.Order("created_at DESC").Limit(limit).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sales: %w", err)
	}
	return sales, nil
}

// generateSaleNumber creates a unique sale number
func generateSaleNumber() string {
	return fmt.Sprintf("SALE-%s", uuid.New().String()[:8])
}

// onHand sums lot quantities inside the sale transaction
func onHand(tx *gorm.DB, productID uint) (int, error) {
	var total int64
	if err := tx.Table("stock_lots").
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum stock lots: %w", err)
	}
	return int(total), nil
}

// internal/domain/stock/service.go
package stock

import (
	"fmt"
	"time"

	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles stock ledger business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new stock service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddLotRequest represents stock entry data
type AddLotRequest struct {
	ProductID   uint      `json:"product_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required"`
	Expiration  time.Time `json:"expiration" binding:"required"`
	LotNumber   string    `json:"lot_number"`
	Supplier    string    `json:"supplier"`
	DeliveryDoc string    `json:"delivery_doc"`
}

// MovementListRequest represents movement list query parameters
type MovementListRequest struct {
	ProductID uint         `form:"product_id"`
	Type      MovementType `form:"type"`
	Limit     int          `form:"limit,default=200"`
}

// LotTake records how much of a depletion a single lot absorbed
type LotTake struct {
	LotID  uint `json:"lot_id"`
	Amount int  `json:"amount"`
}

// OnHand returns the total quantity of a product across all its lots
func (s *Service) OnHand(productID uint) (int, error) {
	return onHand(s.db, productID)
}

// AddLot receives a lot into stock and records the paired ENTRY
// movement atomically.
func (s *Service) AddLot(req *AddLotRequest, userID uint) (*StockLot, error) {
	if userID == 0 {
		return nil, &apperrors.UnauthenticatedError{}
	}
	if req.Quantity <= 0 {
		return nil, apperrors.NewValidation("quantity must be positive, got %d", req.Quantity)
	}
	if req.Expiration.IsZero() {
		return nil, apperrors.NewValidation("expiration is required")
	}

	var product catalog.Product
	if err := s.db.First(&product, req.ProductID).Error; err != nil {
		return nil, apperrors.NewNotFound("product", req.ProductID)
	}

	lot := &StockLot{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Expiration:  req.Expiration,
		LotNumber:   req.LotNumber,
		Supplier:    req.Supplier,
		DeliveryDoc: req.DeliveryDoc,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lot).Error; err != nil {
			return fmt.Errorf("failed to create stock lot: %w", err)
		}

		reference := req.LotNumber
		if reference == "" {
			reference = fmt.Sprintf("lot-%d", lot.ID)
		}

		movement := &Movement{
			ProductID: req.ProductID,
			UserID:    userID,
			Type:      MovementTypeEntry,
			Quantity:  req.Quantity,
			Reason:    "Stock addition",
			Reference: reference,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record entry movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lot, nil
}

// DepleteFIFO consumes quantity from the product's lots, earliest
// expiration first, within the caller's transaction. The availability
// check runs before any mutation: depletion is all-or-nothing. Lots
// sharing an expiration date are consumed oldest-created first, then by
// id, so the order is deterministic.
func (s *Service) DepleteFIFO(tx *gorm.DB, productID uint, quantity int) ([]LotTake, error) {
	if quantity <= 0 {
		return nil, apperrors.NewValidation("quantity must be positive, got %d", quantity)
	}

	var product catalog.Product
	if err := tx.First(&product, productID).Error; err != nil {
		return nil, apperrors.NewNotFound("product", productID)
	}

	var lots []StockLot
	if err := tx.Where("product_id = ? AND quantity > 0", productID).
		Order("expiration ASC, created_at ASC, id ASC").
		Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to load stock lots: %w", err)
	}

	available := 0
	for _, lot := range lots {
		available += lot.Quantity
	}
	if available < quantity {
		return nil, &apperrors.InsufficientStockError{
			ProductName: product.Name,
			Available:   available,
			Requested:   quantity,
		}
	}

	var takes []LotTake
	remaining := quantity
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}

		take := lot.Quantity
		if take > remaining {
			take = remaining
		}

		// Guarded decrement: a concurrent depletion that emptied the lot
		// in the meantime shows up as zero rows affected and aborts the
		// whole transaction.
		res := tx.Model(&StockLot{}).
			Where("id = ? AND quantity >= ?", lot.ID, take).
			Update("quantity", gorm.Expr("quantity - ?", take))
		if res.Error != nil {
			return nil, fmt.Errorf("failed to decrement lot %d: %w", lot.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, apperrors.NewConflict("stock for '%s' changed concurrently, retry the operation", product.Name)
		}

		takes = append(takes, LotTake{LotID: lot.ID, Amount: take})
		remaining -= take
	}

	return takes, nil
}

// ApplyAdjustment applies a signed inventory-count correction to the
// product's lots within the caller's transaction. Positive deltas land
// on the most recently created lot, or on a synthetic adjustment lot
// when the product has none; negative deltas deplete FIFO, capped at
// what is actually on hand.
func (s *Service) ApplyAdjustment(tx *gorm.DB, productID uint, delta int, reference string) error {
	if delta == 0 {
		return nil
	}

	if delta < 0 {
		available, err := onHand(tx, productID)
		if err != nil {
			return err
		}
		remove := -delta
		if remove > available {
			remove = available
		}
		if remove == 0 {
			return nil
		}
		_, err = s.DepleteFIFO(tx, productID, remove)
		return err
	}

	var latest StockLot
	err := tx.Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		First(&latest).Error
	switch {
	case err == nil:
		res := tx.Model(&StockLot{}).
			Where("id = ?", latest.ID).
			Update("quantity", gorm.Expr("quantity + ?", delta))
		if res.Error != nil {
			return fmt.Errorf("failed to adjust lot %d: %w", latest.ID, res.Error)
		}
		return nil
	case err == gorm.ErrRecordNotFound:
		lot := &StockLot{
			ProductID:  productID,
			Quantity:   delta,
			Expiration: time.Now().UTC().AddDate(1, 0, 0),
			LotNumber:  reference,
		}
		if err := tx.Create(lot).Error; err != nil {
			return fmt.Errorf("failed to create adjustment lot: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to find adjustment target lot: %w", err)
	}
}

// GetLots retrieves all stock lots, newest first
func (s *Service) GetLots() ([]StockLot, error) {
	var lots []StockLot
	if err := s.db.Preload("Product").Order("created_at DESC").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stock lots: %w", err)
	}
	return lots, nil
}

// GetExpiringLots retrieves lots expiring inside the window, soonest first
func (s *Service) GetExpiringLots(window time.Duration) ([]StockLot, error) {
	now := time.Now().UTC()
	var lots []StockLot
	if err := s.db.Preload("Product").
		Where("expiration > ? AND expiration <= ?", now, now.Add(window)).
		Order("expiration ASC").
		Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve expiring lots: %w", err)
	}
	return lots, nil
}

// GetMovements retrieves movement records, newest first
func (s *Service) GetMovements(req *MovementListRequest) ([]Movement, error) {
	query := s.db.Preload("Product").Preload("User")

	if req.ProductID > 0 {
		query = query.Where("product_id = ?", req.ProductID)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 200
	}

	var movements []Movement
	if err := query.Order("created_at DESC").Limit(limit).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}

// onHand sums lot quantities inside an arbitrary transaction handle
func onHand(tx *gorm.DB, productID uint) (int, error) {
	var total int64
	if err := tx.Model(&StockLot{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum stock lots: %w", err)
	}
	return int(total), nil
}

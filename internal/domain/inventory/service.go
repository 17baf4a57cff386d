// internal/domain/inventory/service.go
package inventory

import (
	"fmt"
	"time"

	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles inventory reconciliation business logic
type Service struct {
	db     *gorm.DB
	stock  *stock.Service
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, stockService *stock.Service, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		stock:  stockService,
		config: cfg,
	}
}

// RecordCountsRequest represents counted quantities for session items
type RecordCountsRequest struct {
	Items []CountItemRequest `json:"items" binding:"required,min=1"`
}

// CountItemRequest represents one counted line
type CountItemRequest struct {
	ItemID     uint  `json:"item_id" binding:"required"`
	CountedQty int   `json:"counted_qty"`
	Adjustment *bool `json:"adjustment,omitempty"`
}

// StartSession opens a new count session and snapshots the on-hand
// quantity of every active product. The ongoing-session check runs
// inside the same transaction as the insert; the partial unique index
// on ONGOING sessions backstops it against concurrent starts.
func (s *Service) StartSession(userID uint) (*InventorySession, error) {
	if userID == 0 {
		return nil, &apperrors.UnauthenticatedError{}
	}

	session := &InventorySession{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ongoing int64
		if err := tx.Model(&InventorySession{}).
			Where("status = ?", SessionStatusOngoing).
			Count(&ongoing).Error; err != nil {
			return fmt.Errorf("failed to check ongoing sessions: %w", err)
		}
		if ongoing > 0 {
			return apperrors.NewConflict("an inventory session is already ongoing")
		}

		session.Status = SessionStatusOngoing
		session.StartedByID = userID
		session.StartedAt = time.Now().UTC()
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to create inventory session: %w", err)
		}

		var products []catalog.Product
		if err := tx.Where("status = ?", catalog.ProductStatusActive).
			Order("name ASC").
			Find(&products).Error; err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}

		for _, product := range products {
			var onHand int64
			if err := tx.Model(&stock.StockLot{}).
				Where("product_id = ?", product.ID).
				Select("COALESCE(SUM(quantity), 0)").
				Scan(&onHand).Error; err != nil {
				return fmt.Errorf("failed to snapshot stock for product %d: %w", product.ID, err)
			}

			item := &InventoryItem{
				SessionID:  session.ID,
				ProductID:  product.ID,
				SystemQty:  int(onHand),
				CountedQty: 0,
				Difference: -int(onHand),
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("failed to create inventory item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(session.ID)
}

// RecordCounts stores counted quantities and recomputes differences.
// Only permitted while the session is ONGOING.
func (s *Service) RecordCounts(sessionID uint, req *RecordCountsRequest) error {
	session, err := s.findSession(sessionID)
	if err != nil {
		return err
	}
	if !session.IsOngoing() {
		return apperrors.NewConflict("session %d is completed and read-only", sessionID)
	}

	for _, item := range req.Items {
		if item.CountedQty < 0 {
			return apperrors.NewValidation("counted quantity cannot be negative for item %d", item.ItemID)
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, reqItem := range req.Items {
			var item InventoryItem
			if err := tx.Where("id = ? AND session_id = ?", reqItem.ItemID, sessionID).
				First(&item).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return apperrors.NewNotFound("inventory item", reqItem.ItemID)
				}
				return fmt.Errorf("failed to load inventory item: %w", err)
			}

			item.CountedQty = reqItem.CountedQty
			item.Difference = reqItem.CountedQty - item.SystemQty
			if reqItem.Adjustment != nil {
				item.Adjustment = *reqItem.Adjustment
			}
			if err := tx.Save(&item).Error; err != nil {
				return fmt.Errorf("failed to update inventory item: %w", err)
			}
		}
		return nil
	})
}

// CompleteSession closes the session and, in the same transaction,
// applies every flagged non-zero difference to the stock ledger with a
// paired ADJUSTMENT movement. Completion is terminal.
func (s *Service) CompleteSession(sessionID uint, userID uint) (*InventorySession, error) {
	if userID == 0 {
		return nil, &apperrors.UnauthenticatedError{}
	}

	session, err := s.findSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOngoing() {
		return nil, apperrors.NewConflict("session %d is already completed", sessionID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var items []InventoryItem
		if err := tx.Where("session_id = ?", sessionID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load session items: %w", err)
		}

		reference := fmt.Sprintf("INV-%d", sessionID)
		for _, item := range items {
			if item.Difference == 0 || !item.Adjustment {
				continue
			}

			if err := s.stock.ApplyAdjustment(tx, item.ProductID, item.Difference, reference); err != nil {
				return err
			}

			movement := &stock.Movement{
				ProductID: item.ProductID,
				UserID:    userID,
				Type:      stock.MovementTypeAdjustment,
				Quantity:  item.Difference,
				Reason:    fmt.Sprintf("Inventory session %d reconciliation", sessionID),
				Reference: reference,
			}
			if err := tx.Create(movement).Error; err != nil {
				return fmt.Errorf("failed to record adjustment movement: %w", err)
			}
		}

		now := time.Now().UTC()
		res := tx.Model(&InventorySession{}).
			Where("id = ? AND status = ?", sessionID, SessionStatusOngoing).
			Updates(map[string]interface{}{
				"status":       SessionStatusCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NewConflict("session %d was completed concurrently", sessionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(sessionID)
}

// GetSession retrieves a session with its items
func (s *Service) GetSession(sessionID uint) (*InventorySession, error) {
	var session InventorySession
	if err := s.db.Preload("Items").Preload("Items.Product").Preload("StartedBy").
		First(&session, sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFound("inventory session", sessionID)
		}
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}
	return &session, nil
}

// GetSessions retrieves sessions newest first
func (s *Service) GetSessions() ([]InventorySession, error) {
	var sessions []InventorySession
	if err := s.db.Preload("StartedBy").Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) findSession(sessionID uint) (*InventorySession, error) {
	var session InventorySession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFound("inventory session", sessionID)
		}
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}
	return &session, nil
}

// internal/domain/alert/service.go
package alert

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles alert business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new alert service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// AlertListRequest represents alert list query parameters
type AlertListRequest struct {
	Status AlertStatus `form:"status"`
	Type   AlertType   `form:"type"`
}

// Sweep runs the three alert passes. Each pass is independent: a
// failure is logged and the remaining passes still run. Sweeping never
// resolves anything, so re-running with unchanged data creates no new
// alerts.
func (s *Service) Sweep() {
	if err := s.sweepLowStock(); err != nil {
		s.logger.WithError(err).Error("Low stock alert pass failed")
	}
	if err := s.sweepExpirySoon(); err != nil {
		s.logger.WithError(err).Error("Expiry soon alert pass failed")
	}
	if err := s.sweepExpired(); err != nil {
		s.logger.WithError(err).Error("Expired alert pass failed")
	}
}

func (s *Service) sweepLowStock() error {
	var products []catalog.Product
	if err := s.db.Where("min_stock > 0 AND status = ?", catalog.ProductStatusActive).
		Find(&products).Error; err != nil {
		return fmt.Errorf("failed to load threshold products: %w", err)
	}

	for _, product := range products {
		var onHand int64
		if err := s.db.Model(&stock.StockLot{}).
			Where("product_id = ?", product.ID).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&onHand).Error; err != nil {
			return fmt.Errorf("failed to sum stock for product %d: %w", product.ID, err)
		}
		if int(onHand) >= product.MinStock {
			continue
		}

		message := fmt.Sprintf("Low stock for '%s': %d remaining (threshold %d)",
			product.Name, onHand, product.MinStock)
		if err := s.raise(product.ID, AlertTypeLowStock, message); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sweepExpirySoon() error {
	now := time.Now().UTC()
	window := s.expiryWindow()

	var lots []stock.StockLot
	if err := s.db.Preload("Product").
		Where("expiration > ? AND expiration <= ?", now, now.Add(window)).
		Find(&lots).Error; err != nil {
		return fmt.Errorf("failed to load expiring lots: %w", err)
	}

	for _, lot := range lots {
		message := fmt.Sprintf("Lot %s of '%s' expires on %s",
			lotLabel(&lot), lot.Product.Name, lot.Expiration.Format("2006-01-02"))
		if err := s.raise(lot.ProductID, AlertTypeExpirySoon, message); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sweepExpired() error {
	now := time.Now().UTC()

	var lots []stock.StockLot
	if err := s.db.Preload("Product").
		Where("expiration < ? AND quantity > 0", now).
		Find(&lots).Error; err != nil {
		return fmt.Errorf("failed to load expired lots: %w", err)
	}

	for _, lot := range lots {
		message := fmt.Sprintf("Lot %s of '%s' expired on %s with %d units left",
			lotLabel(&lot), lot.Product.Name, lot.Expiration.Format("2006-01-02"), lot.Quantity)
		if err := s.raise(lot.ProductID, AlertTypeExpired, message); err != nil {
			return err
		}
	}
	return nil
}

// raise creates a PENDING alert unless one already exists for the
// (product, type) pair. The partial unique index added at migration
// time backstops this check against concurrent sweeps.
func (s *Service) raise(productID uint, alertType AlertType, message string) error {
	var count int64
	if err := s.db.Model(&Alert{}).
		Where("product_id = ? AND type = ? AND status = ?", productID, alertType, AlertStatusPending).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing alerts: %w", err)
	}
	if count > 0 {
		return nil
	}

	alert := &Alert{
		ProductID: productID,
		Type:      alertType,
		Message:   message,
		Status:    AlertStatusPending,
	}
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"type":       alertType,
	}).Info("Alert raised")
	return nil
}

// Resolve flips a PENDING alert to RESOLVED
func (s *Service) Resolve(alertID uint) (*Alert, error) {
	var alert Alert
	if err := s.db.First(&alert, alertID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFound("alert", alertID)
		}
		return nil, fmt.Errorf("failed to retrieve alert: %w", err)
	}

	if alert.Status == AlertStatusResolved {
		return nil, apperrors.NewConflict("alert %d is already resolved", alertID)
	}

	now := time.Now().UTC()
	alert.Status = AlertStatusResolved
	alert.ResolvedAt = &now
	if err := s.db.Save(&alert).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return &alert, nil
}

// GetAlerts retrieves alerts newest first with optional filters
func (s *Service) GetAlerts(req *AlertListRequest) ([]Alert, error) {
	query := s.db.Preload("Product")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	var alerts []Alert
	if err := query.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve alerts: %w", err)
	}
	return alerts, nil
}

// PendingCount returns the number of unresolved alerts
func (s *Service) PendingCount() (int64, error) {
	var count int64
	if err := s.db.Model(&Alert{}).
		Where("status = ?", AlertStatusPending).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pending alerts: %w", err)
	}
	return count, nil
}

func (s *Service) expiryWindow() time.Duration {
	if s.config != nil && s.config.Alerts.ExpirySoonWindow > 0 {
		return s.config.Alerts.ExpirySoonWindow
	}
	return 30 * 24 * time.Hour
}

func lotLabel(lot *stock.StockLot) string {
	if lot.LotNumber != "" {
		return lot.LotNumber
	}
	return fmt.Sprintf("#%d", lot.ID)
}

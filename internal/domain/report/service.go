// internal/domain/report/service.go
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/alert"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// ReportType identifies an exportable dataset
type ReportType string

const (
	ReportTypeInventory ReportType = "inventory"
	ReportTypeMovements ReportType = "movements"
	ReportTypeAlerts    ReportType = "alerts"
	ReportTypeExpiring  ReportType = "expiring"
)

// Service handles tabular report exports
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new report service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// Export writes the requested dataset as CSV, one header row followed
// by one row per record.
func (s *Service) Export(reportType ReportType, w io.Writer) error {
	writer := csv.NewWriter(w)

	var err error
	switch reportType {
	case ReportTypeInventory:
		err = s.exportInventory(writer)
	case ReportTypeMovements:
		err = s.exportMovements(writer)
	case ReportTypeAlerts:
		err = s.exportAlerts(writer)
	case ReportTypeExpiring:
		err = s.exportExpiring(writer)
	default:
		return apperrors.NewValidation("unknown report type '%s'", reportType)
	}
	if err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

// Filename suggests a download name for the report
func (s *Service) Filename(reportType ReportType) string {
	return fmt.Sprintf("%s_%s.csv", reportType, time.Now().UTC().Format("2006-01-02"))
}

func (s *Service) exportInventory(w *csv.Writer) error {
	var products []catalog.Product
	if err := s.db.Order("name ASC").Find(&products).Error; err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	if err := w.Write([]string{"id", "name", "laboratory", "status", "on_hand", "min_stock", "selling_price"}); err != nil {
		return err
	}
	for _, product := range products {
		var onHand int64
		if err := s.db.Model(&stock.StockLot{}).
			Where("product_id = ?", product.ID).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&onHand).Error; err != nil {
			return fmt.Errorf("failed to sum stock for product %d: %w", product.ID, err)
		}

		price := ""
		if product.SellingPrice.Valid {
			price = product.SellingPrice.Decimal.StringFixed(2)
		}
		row := []string{
			strconv.FormatUint(uint64(product.ID), 10),
			product.Name,
			product.Laboratory,
			string(product.Status),
			strconv.FormatInt(onHand, 10),
			strconv.Itoa(product.MinStock),
			price,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) exportMovements(w *csv.Writer) error {
	var movements []stock.Movement
	if err := s.db.Preload("Product").Preload("User").
		Order("created_at DESC").
		Find(&movements).Error; err != nil {
		return fmt.Errorf("failed to load movements: %w", err)
	}

	if err := w.Write([]string{"id", "date", "product", "type", "quantity", "reason", "reference", "user"}); err != nil {
		return err
	}
	for _, m := range movements {
		row := []string{
			strconv.FormatUint(uint64(m.ID), 10),
			m.CreatedAt.UTC().Format(time.RFC3339),
			m.Product.Name,
			string(m.Type),
			strconv.Itoa(m.Quantity),
			m.Reason,
			m.Reference,
			m.User.Name,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) exportAlerts(w *csv.Writer) error {
	var alerts []alert.Alert
	if err := s.db.Preload("Product").
		Order("created_at DESC").
		Find(&alerts).Error; err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}

	if err := w.Write([]string{"id", "created_at", "product", "type", "status", "message", "resolved_at"}); err != nil {
		return err
	}
	for _, a := range alerts {
		resolvedAt := ""
		if a.ResolvedAt != nil {
			resolvedAt = a.ResolvedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatUint(uint64(a.ID), 10),
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.Product.Name,
			string(a.Type),
			string(a.Status),
			a.Message,
			resolvedAt,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) exportExpiring(w *csv.Writer) error {
	now := time.Now().UTC()
	window := 30 * 24 * time.Hour
	if s.config != nil && s.config.Alerts.ExpirySoonWindow > 0 {
		window = s.config.Alerts.ExpirySoonWindow
	}

	var lots []stock.StockLot
	if err := s.db.Preload("Product").
		Where("expiration <= ?", now.Add(window)).
		Order("expiration ASC").
		Find(&lots).Error; err != nil {
		return fmt.Errorf("failed to load expiring lots: %w", err)
	}

	if err := w.Write([]string{"lot_id", "product", "lot_number", "quantity", "expiration", "supplier"}); err != nil {
		return err
	}
	for _, lot := range lots {
		row := []string{
			strconv.FormatUint(uint64(lot.ID), 10),
			lot.Product.Name,
			lot.LotNumber,
			strconv.Itoa(lot.Quantity),
			lot.Expiration.UTC().Format("2006-01-02"),
			lot.Supplier,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

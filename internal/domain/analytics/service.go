// internal/domain/analytics/service.go
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles dashboard aggregation
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// DashboardStats represents the dashboard counters
type DashboardStats struct {
	// Stock metrics
	TotalStock        int64 `json:"total_stock"`
	TotalProducts     int64 `json:"total_products"`
	ActiveProducts    int64 `json:"active_products"`
	LowStockCount     int64 `json:"low_stock_count"`
	ExpiringSoonCount int64 `json:"expiring_soon_count"`
	ExpiredCount      int64 `json:"expired_count"`

	// Alert metrics
	PendingAlerts int64 `json:"pending_alerts"`

	// Sales metrics
	SalesToday   int64           `json:"sales_today"`
	RevenueToday decimal.Decimal `json:"revenue_today"`
	SalesWeek    int64           `json:"sales_week"`
	RevenueWeek  decimal.Decimal `json:"revenue_week"`

	// Recent activity
	DailySales []DailySalesData `json:"daily_sales"`
}

// DailySalesData represents one day of sales volume
type DailySalesData struct {
	Date    string          `json:"date"`
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// GetDashboardStats aggregates the dashboard counters. Callers run an
// alert sweep first so the pending-alert count reflects current stock.
func (s *Service) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{
		RevenueToday: decimal.Zero,
		RevenueWeek:  decimal.Zero,
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	expiryWindow := 30 * 24 * time.Hour
	if s.config != nil && s.config.Alerts.ExpirySoonWindow > 0 {
		expiryWindow = s.config.Alerts.ExpirySoonWindow
	}

	// Stock metrics
	if err := s.db.Raw("SELECT COALESCE(SUM(quantity), 0) FROM stock_lots").Scan(&stats.TotalStock).Error; err != nil {
		return nil, fmt.Errorf("failed to sum stock: %w", err)
	}
	if err := s.db.Raw("SELECT COUNT(*) FROM products").Scan(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := s.db.Raw("SELECT COUNT(*) FROM products WHERE status = 'ACTIVE'").Scan(&stats.ActiveProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count active products: %w", err)
	}

	if err := s.db.Raw(`
		SELECT COUNT(*)
		FROM products p
		WHERE p.status = 'ACTIVE'
		  AND p.min_stock > 0
		  AND (SELECT COALESCE(SUM(l.quantity), 0) FROM stock_lots l WHERE l.product_id = p.id) < p.min_stock
	`).Scan(&stats.LowStockCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	if err := s.db.Raw("SELECT COUNT(DISTINCT product_id) FROM stock_lots WHERE expiration > ? AND expiration <= ?",
		now, now.Add(expiryWindow)).Scan(&stats.ExpiringSoonCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count expiring lots: %w", err)
	}
	if err := s.db.Raw("SELECT COUNT(DISTINCT product_id) FROM stock_lots WHERE expiration < ? AND quantity > 0",
		now).Scan(&stats.ExpiredCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count expired lots: %w", err)
	}

	// Alert metrics
	if err := s.db.Raw("SELECT COUNT(*) FROM alerts WHERE status = 'PENDING'").Scan(&stats.PendingAlerts).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending alerts: %w", err)
	}

	// Sales metrics
	if err := s.db.Raw("SELECT COUNT(*) FROM sales WHERE created_at >= ?", today).Scan(&stats.SalesToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's sales: %w", err)
	}
	if err := s.db.Raw("SELECT COUNT(*) FROM sales WHERE created_at >= ?", weekStart).Scan(&stats.SalesWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to count this week's sales: %w", err)
	}

	var revenueToday, revenueWeek decimal.NullDecimal
	if err := s.db.Raw("SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= ?", today).Scan(&revenueToday).Error; err != nil {
		return nil, fmt.Errorf("failed to sum today's revenue: %w", err)
	}
	if err := s.db.Raw("SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= ?", weekStart).Scan(&revenueWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to sum this week's revenue: %w", err)
	}
	if revenueToday.Valid {
		stats.RevenueToday = revenueToday.Decimal
	}
	if revenueWeek.Valid {
		stats.RevenueWeek = revenueWeek.Decimal
	}

	// Last seven days of sales volume
	rows, err := s.db.Raw(`
		SELECT DATE(created_at) as date,
		       COUNT(*) as count,
		       COALESCE(SUM(total), 0) as revenue
		FROM sales
		WHERE created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY date
	`, today.AddDate(0, 0, -6)).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data DailySalesData
		var revenue decimal.NullDecimal
		if err := rows.Scan(&data.Date, &data.Count, &revenue); err != nil {
			continue
		}
		if revenue.Valid {
			data.Revenue = revenue.Decimal
		}
		stats.DailySales = append(stats.DailySales, data)
	}

	return stats, nil
}

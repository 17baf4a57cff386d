package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/alert"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/sale"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "analytics_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&user.User{}, &catalog.Product{},
		&stock.StockLot{}, &stock.Movement{},
		&sale.Sale{}, &sale.SaleItem{},
		&alert.Alert{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func TestGetDashboardStats(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &config.Config{})

	actor := &user.User{Email: "pos@pharmacy.test", Password: "hashed", Name: "POS", Role: user.RoleSeller, IsActive: true}
	if err := db.Create(actor).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	now := time.Now().UTC()

	lowStock := &catalog.Product{Name: "Low", MinStock: 10, Status: catalog.ProductStatusActive}
	healthy := &catalog.Product{Name: "Healthy", MinStock: 2, Status: catalog.ProductStatusActive}
	archived := &catalog.Product{Name: "Archived", Status: catalog.ProductStatusArchived}
	for _, p := range []*catalog.Product{lowStock, healthy, archived} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
	}

	lots := []*stock.StockLot{
		{ProductID: lowStock.ID, Quantity: 3, Expiration: now.AddDate(0, 0, 20)},
		{ProductID: healthy.ID, Quantity: 15, Expiration: now.AddDate(1, 0, 0)},
		{ProductID: healthy.ID, Quantity: 2, Expiration: now.AddDate(0, 0, -3)},
	}
	for _, lot := range lots {
		if err := db.Create(lot).Error; err != nil {
			t.Fatalf("failed to create lot: %v", err)
		}
	}

	pendingAlert := &alert.Alert{ProductID: lowStock.ID, Type: alert.AlertTypeLowStock, Message: "low", Status: alert.AlertStatusPending}
	if err := db.Create(pendingAlert).Error; err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	todaySale := &sale.Sale{Number: "SALE-test", UserID: actor.ID, Total: decimal.RequireFromString("12.50"), PaymentMethod: sale.PaymentMethodCash}
	if err := db.Create(todaySale).Error; err != nil {
		t.Fatalf("failed to create sale: %v", err)
	}

	stats, err := svc.GetDashboardStats()
	if err != nil {
		t.Fatalf("GetDashboardStats failed: %v", err)
	}

	if stats.TotalStock != 20 {
		t.Errorf("expected total stock 20, got %d", stats.TotalStock)
	}
	if stats.TotalProducts != 3 {
		t.Errorf("expected 3 products total, got %d", stats.TotalProducts)
	}
	if stats.ActiveProducts != 2 {
		t.Errorf("expected 2 active products, got %d", stats.ActiveProducts)
	}
	if stats.LowStockCount != 1 {
		t.Errorf("expected 1 low stock product, got %d", stats.LowStockCount)
	}
	if stats.ExpiringSoonCount != 1 {
		t.Errorf("expected 1 product expiring soon, got %d", stats.ExpiringSoonCount)
	}
	if stats.ExpiredCount != 1 {
		t.Errorf("expected 1 product with expired stock, got %d", stats.ExpiredCount)
	}
	if stats.PendingAlerts != 1 {
		t.Errorf("expected 1 pending alert, got %d", stats.PendingAlerts)
	}
	if stats.SalesToday != 1 {
		t.Errorf("expected 1 sale today, got %d", stats.SalesToday)
	}
	if !stats.RevenueToday.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("expected revenue 12.50 today, got %s", stats.RevenueToday)
	}
}

func TestGetDashboardStatsSurfacesQueryErrors(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &config.Config{})

	// A broken schema must produce an error, never silent zeros
	if err := db.Exec("DROP TABLE alerts").Error; err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	if _, err := svc.GetDashboardStats(); err == nil {
		t.Fatal("expected an error when a dashboard query fails")
	}
}

package alert

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/sale"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "alert_test.db")
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
		&Alert{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(db, &config.Config{}, log), db
}

func createTestProduct(t *testing.T, db *gorm.DB, name string, minStock int) *catalog.Product {
	t.Helper()
	product := &catalog.Product{Name: name, MinStock: minStock, Status: catalog.ProductStatusActive}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

func createTestLot(t *testing.T, db *gorm.DB, productID uint, qty int, expiration time.Time) *stock.StockLot {
	t.Helper()
	lot := &stock.StockLot{ProductID: productID, Quantity: qty, Expiration: expiration}
	if err := db.Create(lot).Error; err != nil {
		t.Fatalf("failed to create test lot: %v", err)
	}
	return lot
}

func countAlerts(t *testing.T, db *gorm.DB, productID uint, alertType AlertType) int64 {
	t.Helper()
	var count int64
	q := db.Model(&Alert{}).Where("status = ?", AlertStatusPending)
	if productID > 0 {
		q = q.Where("product_id = ?", productID)
	}
	if alertType != "" {
		q = q.Where("type = ?", alertType)
	}
	if err := q.Count(&count).Error; err != nil {
		t.Fatalf("failed to count alerts: %v", err)
	}
	return count
}

func TestSweepLowStock(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	low := createTestProduct(t, db, "Low Product", 10)
	createTestLot(t, db, low.ID, 4, now.AddDate(1, 0, 0))

	healthy := createTestProduct(t, db, "Healthy Product", 5)
	createTestLot(t, db, healthy.ID, 20, now.AddDate(1, 0, 0))

	noThreshold := createTestProduct(t, db, "No Threshold", 0)
	createTestLot(t, db, noThreshold.ID, 0, now.AddDate(1, 0, 0))

	svc.Sweep()

	if got := countAlerts(t, db, low.ID, AlertTypeLowStock); got != 1 {
		t.Errorf("expected 1 low stock alert for tracked product, got %d", got)
	}
	if got := countAlerts(t, db, healthy.ID, AlertTypeLowStock); got != 0 {
		t.Errorf("expected no alert for healthy product, got %d", got)
	}
	if got := countAlerts(t, db, noThreshold.ID, AlertTypeLowStock); got != 0 {
		t.Errorf("expected no alert when minStock is 0, got %d", got)
	}
}

func TestSweepExpiry(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	soon := createTestProduct(t, db, "Expiring Soon", 0)
	createTestLot(t, db, soon.ID, 10, now.AddDate(0, 0, 15))

	far := createTestProduct(t, db, "Far Out", 0)
	createTestLot(t, db, far.ID, 10, now.AddDate(0, 6, 0))

	gone := createTestProduct(t, db, "Already Expired", 0)
	createTestLot(t, db, gone.ID, 3, now.AddDate(0, 0, -5))

	emptyExpired := createTestProduct(t, db, "Empty Expired", 0)
	createTestLot(t, db, emptyExpired.ID, 0, now.AddDate(0, 0, -5))

	svc.Sweep()

	if got := countAlerts(t, db, soon.ID, AlertTypeExpirySoon); got != 1 {
		t.Errorf("expected 1 expiry soon alert, got %d", got)
	}
	if got := countAlerts(t, db, far.ID, ""); got != 0 {
		t.Errorf("expected no alerts for far-out lot, got %d", got)
	}
	if got := countAlerts(t, db, gone.ID, AlertTypeExpired); got != 1 {
		t.Errorf("expected 1 expired alert, got %d", got)
	}
	if got := countAlerts(t, db, emptyExpired.ID, AlertTypeExpired); got != 0 {
		t.Errorf("expected no expired alert for empty lot, got %d", got)
	}
}

func TestSweepIdempotence(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	product := createTestProduct(t, db, "Tracked", 10)
	createTestLot(t, db, product.ID, 2, now.AddDate(0, 0, 12))

	svc.Sweep()
	first := countAlerts(t, db, 0, "")

	svc.Sweep()
	svc.Sweep()
	second := countAlerts(t, db, 0, "")

	if first != second {
		t.Errorf("sweep is not idempotent: %d alerts became %d", first, second)
	}
	// one LOW_STOCK and one EXPIRY_SOON for the same product
	if first != 2 {
		t.Errorf("expected 2 pending alerts, got %d", first)
	}
}

func TestSweepReRaisesAfterResolve(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	product := createTestProduct(t, db, "Persistent Low", 10)
	createTestLot(t, db, product.ID, 1, now.AddDate(1, 0, 0))

	svc.Sweep()

	var alert Alert
	if err := db.Where("product_id = ?", product.ID).First(&alert).Error; err != nil {
		t.Fatalf("expected an alert: %v", err)
	}
	if _, err := svc.Resolve(alert.ID); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// condition still holds, so the next sweep raises a fresh alert
	svc.Sweep()
	if got := countAlerts(t, db, product.ID, AlertTypeLowStock); got != 1 {
		t.Errorf("expected a new pending alert after resolution, got %d", got)
	}
}

func TestResolve(t *testing.T) {
	svc, db := newTestService(t)
	product := createTestProduct(t, db, "Resolvable", 0)

	alert := &Alert{ProductID: product.ID, Type: AlertTypeLowStock, Message: "test", Status: AlertStatusPending}
	if err := db.Create(alert).Error; err != nil {
		t.Fatalf("failed to seed alert: %v", err)
	}

	resolved, err := svc.Resolve(alert.ID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != AlertStatusResolved || resolved.ResolvedAt == nil {
		t.Errorf("expected resolved alert with timestamp, got %+v", resolved)
	}

	if _, err := svc.Resolve(alert.ID); !apperrors.IsConflict(err) {
		t.Errorf("expected conflict on double resolve, got %v", err)
	}
	if _, err := svc.Resolve(9999); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for unknown alert, got %v", err)
	}
}

// Two lots (3 units expiring in 10 days, 10 units expiring in 60 days),
// threshold 5. Selling 4 drains the first lot and takes 1 from the
// second; 8 remain so no low stock alert, but the near lot still
// raises exactly one expiry soon alert.
func TestSaleThenSweepScenario(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	actor := &user.User{Email: "pos@pharmacy.test", Password: "hashed", Name: "POS", Role: user.RoleSeller, IsActive: true}
	if err := db.Create(actor).Error; err != nil {
		t.Fatalf("failed to create actor: %v", err)
	}

	product := createTestProduct(t, db, "Scenario Product", 5)
	db.Model(product).Update("selling_price", decimal.NewFromFloat(3.20))

	first := createTestLot(t, db, product.ID, 3, now.AddDate(0, 0, 10))
	second := createTestLot(t, db, product.ID, 10, now.AddDate(0, 0, 60))

	cfg := &config.Config{}
	saleSvc := sale.NewService(db, stock.NewService(db, cfg), cfg)
	if _, err := saleSvc.CreateSale(&sale.CreateSaleRequest{
		Items: []sale.SaleItemRequest{{ProductID: product.ID, Quantity: 4}},
	}, actor.ID); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	var reloadedFirst, reloadedSecond stock.StockLot
	db.First(&reloadedFirst, first.ID)
	db.First(&reloadedSecond, second.ID)
	if reloadedFirst.Quantity != 0 || reloadedSecond.Quantity != 9 {
		t.Fatalf("unexpected lot state after sale: first=%d second=%d",
			reloadedFirst.Quantity, reloadedSecond.Quantity)
	}

	svc.Sweep()

	if got := countAlerts(t, db, product.ID, AlertTypeLowStock); got != 0 {
		t.Errorf("expected no low stock alert at 8 on hand, got %d", got)
	}
	if got := countAlerts(t, db, product.ID, AlertTypeExpirySoon); got != 1 {
		t.Errorf("expected exactly one expiry soon alert, got %d", got)
	}
}

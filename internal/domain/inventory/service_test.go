package inventory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "inventory_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&user.User{}, &catalog.Product{},
		&stock.StockLot{}, &stock.Movement{},
		&InventorySession{}, &InventoryItem{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{}
	return NewService(db, stock.NewService(db, cfg), cfg), db
}

func createTestUser(t *testing.T, db *gorm.DB) *user.User {
	t.Helper()
	u := &user.User{
		Email:    "manager@pharmacy.test",
		Password: "hashed",
		Name:     "Test Manager",
		Role:     user.RoleManager,
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createStockedProduct(t *testing.T, db *gorm.DB, name string, qty int) *catalog.Product {
	t.Helper()
	product := &catalog.Product{Name: name, Status: catalog.ProductStatusActive}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	if qty > 0 {
		lot := &stock.StockLot{ProductID: product.ID, Quantity: qty, Expiration: time.Now().UTC().AddDate(1, 0, 0)}
		if err := db.Create(lot).Error; err != nil {
			t.Fatalf("failed to create test lot: %v", err)
		}
	}
	return product
}

func boolPtr(b bool) *bool { return &b }

func TestStartSessionSnapshots(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)

	createStockedProduct(t, db, "Stocked", 12)
	createStockedProduct(t, db, "Empty Shelf", 0)
	archived := createStockedProduct(t, db, "Archived", 5)
	db.Model(archived).Update("status", catalog.ProductStatusArchived)

	session, err := svc.StartSession(actor.ID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.Status != SessionStatusOngoing {
		t.Errorf("expected ONGOING session, got %s", session.Status)
	}
	if len(session.Items) != 2 {
		t.Fatalf("expected 2 items (archived products excluded), got %d", len(session.Items))
	}

	for _, item := range session.Items {
		if item.CountedQty != 0 {
			t.Errorf("expected counted quantity initialized to 0, got %d", item.CountedQty)
		}
		if item.Difference != -item.SystemQty {
			t.Errorf("expected difference -systemQty, got %d for system %d", item.Difference, item.SystemQty)
		}
	}
}

func TestStartSessionConflict(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)
	createStockedProduct(t, db, "Any", 3)

	if _, err := svc.StartSession(actor.ID); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	_, err := svc.StartSession(actor.ID)
	if !apperrors.IsConflict(err) {
		t.Errorf("expected conflict while a session is ongoing, got %v", err)
	}
}

func TestStartSessionUnauthenticated(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.StartSession(0); !apperrors.IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated error, got %v", err)
	}
}

func TestRecordCounts(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)
	createStockedProduct(t, db, "Counted", 10)

	session, err := svc.StartSession(actor.ID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	item := session.Items[0]

	err = svc.RecordCounts(session.ID, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: item.ID, CountedQty: 7, Adjustment: boolPtr(true)}},
	})
	if err != nil {
		t.Fatalf("RecordCounts failed: %v", err)
	}

	var reloaded InventoryItem
	db.First(&reloaded, item.ID)
	if reloaded.CountedQty != 7 || reloaded.Difference != -3 || !reloaded.Adjustment {
		t.Errorf("unexpected item state: counted=%d difference=%d adjustment=%v",
			reloaded.CountedQty, reloaded.Difference, reloaded.Adjustment)
	}
}

func TestRecordCountsValidation(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)
	createStockedProduct(t, db, "Counted", 10)

	session, err := svc.StartSession(actor.ID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	item := session.Items[0]

	err = svc.RecordCounts(session.ID, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: item.ID, CountedQty: -1}},
	})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error on negative count, got %v", err)
	}

	err = svc.RecordCounts(session.ID, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: 9999, CountedQty: 1}},
	})
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for foreign item, got %v", err)
	}

	err = svc.RecordCounts(9999, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: item.ID, CountedQty: 1}},
	})
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for unknown session, got %v", err)
	}
}

func TestCompleteSessionAppliesAdjustments(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)
	product := createStockedProduct(t, db, "Drifted", 10)

	session, err := svc.StartSession(actor.ID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	item := session.Items[0]

	// counted 7 against a system quantity of 10
	if err := svc.RecordCounts(session.ID, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: item.ID, CountedQty: 7, Adjustment: boolPtr(true)}},
	}); err != nil {
		t.Fatalf("RecordCounts failed: %v", err)
	}

	completed, err := svc.CompleteSession(session.ID, actor.ID)
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if completed.Status != SessionStatusCompleted || completed.CompletedAt == nil {
		t.Errorf("expected completed session with timestamp, got %+v", completed)
	}

	var movements []stock.Movement
	if err := db.Where("product_id = ?", product.ID).Find(&movements).Error; err != nil {
		t.Fatalf("failed to load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected exactly 1 adjustment movement, got %d", len(movements))
	}
	if movements[0].Type != stock.MovementTypeAdjustment || movements[0].Quantity != -3 {
		t.Errorf("expected ADJUSTMENT movement of -3, got %s %d", movements[0].Type, movements[0].Quantity)
	}

	var onHand int64
	db.Model(&stock.StockLot{}).Where("product_id = ?", product.ID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&onHand)
	if onHand != 7 {
		t.Errorf("expected 7 on hand after adjustment, got %d", onHand)
	}
}

func TestCompleteSessionWithoutFlagsEmitsNothing(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)
	createStockedProduct(t, db, "Unflagged", 10)

	session, err := svc.StartSession(actor.ID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	item := session.Items[0]

	// difference is non-zero but the adjustment flag stays off
	if err := svc.RecordCounts(session.ID, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: item.ID, CountedQty: 4}},
	}); err != nil {
		t.Fatalf("RecordCounts failed: %v", err)
	}

	completed, err := svc.CompleteSession(session.ID, actor.ID)
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if completed.Status != SessionStatusCompleted {
		t.Errorf("expected completed status, got %s", completed.Status)
	}

	var movementCount int64
	db.Model(&stock.Movement{}).Count(&movementCount)
	if movementCount != 0 {
		t.Errorf("expected no movements, got %d", movementCount)
	}
}

func TestCompletedSessionIsTerminal(t *testing.T) {
	svc, db := newTestService(t)
	actor := createTestUser(t, db)
	createStockedProduct(t, db, "Terminal", 5)

	session, err := svc.StartSession(actor.ID)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	item := session.Items[0]

	if _, err := svc.CompleteSession(session.ID, actor.ID); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}

	if _, err := svc.CompleteSession(session.ID, actor.ID); !apperrors.IsConflict(err) {
		t.Errorf("expected conflict on double completion, got %v", err)
	}

	err = svc.RecordCounts(session.ID, &RecordCountsRequest{
		Items: []CountItemRequest{{ItemID: item.ID, CountedQty: 5}},
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("expected conflict recording counts after completion, got %v", err)
	}

	// a new session can start once the previous one is completed
	if _, err := svc.StartSession(actor.ID); err != nil {
		t.Errorf("expected new session to start after completion, got %v", err)
	}
}

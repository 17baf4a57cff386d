// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/domain/alert"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/sale"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},

		// Catalog domain
		&catalog.Product{},

		// Stock domain
		&stock.StockLot{},
		&stock.Movement{},

		// Sale domain
		&sale.Sale{},
		&sale.SaleItem{},

		// Alert domain
		&alert.Alert{},

		// Inventory domain
		&inventory.InventorySession{},
		&inventory.InventoryItem{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance.
// The two partial unique indexes enforce the duplicate-alert and
// one-ongoing-session rules at the storage layer, so the application
// level check-then-insert cannot race.
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_status_name ON products(status, name)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Stock lot indexes - FIFO selection order
		"CREATE INDEX IF NOT EXISTS idx_stock_lots_product_expiration ON stock_lots(product_id, expiration, created_at, id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_lots_expiration ON stock_lots(expiration)",

		// Movement indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created ON stock_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_type ON stock_movements(type)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sales_user_created ON sales(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_product ON sale_items(product_id)",

		// Alert indexes - at most one PENDING alert per (product, type)
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_pending_unique ON alerts(product_id, type) WHERE status = 'PENDING'",
		"CREATE INDEX IF NOT EXISTS idx_alerts_status_created ON alerts(status, created_at DESC)",

		// Inventory indexes - at most one ONGOING session
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_sessions_ongoing ON inventory_sessions(status) WHERE status = 'ONGOING'",
		"CREATE INDEX IF NOT EXISTS idx_inventory_items_session ON inventory_items(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_items_product ON inventory_items(product_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	// Create default manager user
	if err := m.seedManagerUser(); err != nil {
		return fmt.Errorf("failed to seed manager user: %w", err)
	}

	// Create test seller for development
	if err := m.seedSellerUser(); err != nil {
		return fmt.Errorf("failed to seed seller user: %w", err)
	}

	// Seed sample products with stock
	if err := m.seedSampleProducts(); err != nil {
		return fmt.Errorf("failed to seed sample products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedManagerUser() error {
	log.Println("👤 Seeding manager user...")

	var existing user.User
	result := m.db.Where("email = ?", "manager@pharmacy.local").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Manager123!"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		managerUser := user.User{
			Email:    "manager@pharmacy.local",
			Password: string(hashedPassword),
			Name:     "Pharmacy Manager",
			Role:     user.RoleManager,
			IsActive: true,
		}

		if err := m.db.Create(&managerUser).Error; err != nil {
			return fmt.Errorf("failed to create manager user: %w", err)
		}

		log.Println("✅ Created manager user: manager@pharmacy.local (password: Manager123!)")
	} else {
		log.Printf("⏭️ Manager user already exists with ID: %d", existing.ID)
	}

	return nil
}

func (m *Migration) seedSellerUser() error {
	log.Println("👤 Seeding seller user...")

	var existing user.User
	result := m.db.Where("email = ?", "seller@pharmacy.local").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Seller123!"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		sellerUser := user.User{
			Email:    "seller@pharmacy.local",
			Password: string(hashedPassword),
			Name:     "Counter Seller",
			Role:     user.RoleSeller,
			IsActive: true,
		}

		if err := m.db.Create(&sellerUser).Error; err != nil {
			return err
		}

		log.Println("✅ Created seller user: seller@pharmacy.local (password: Seller123!)")
	} else {
		log.Println("⏭️ Seller user already exists")
	}

	return nil
}

// seedSampleProducts creates a few products with priced stock so a
// fresh development install is immediately usable
func (m *Migration) seedSampleProducts() error {
	log.Println("💊 Seeding sample products...")

	var productCount int64
	m.db.Model(&catalog.Product{}).Count(&productCount)
	if productCount > 0 {
		log.Println("⏭️ Products already exist")
		return nil
	}

	price := func(v string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}

	sampleProducts := []struct {
		product catalog.Product
		qty     int
		expiry  time.Time
		lot     string
	}{
		{
			product: catalog.Product{
				Name:         "Doliprane 1000mg",
				Description:  "Paracetamol tablets, box of 8",
				Laboratory:   "Sanofi",
				MinStock:     10,
				SellingPrice: price("2.50"),
				CostPrice:    price("1.10"),
				Status:       catalog.ProductStatusActive,
			},
			qty:    60,
			expiry: time.Now().UTC().AddDate(1, 6, 0),
			lot:    "DOL-2027-11",
		},
		{
			product: catalog.Product{
				Name:         "Ibuprofen 400mg",
				Description:  "Anti-inflammatory tablets, box of 12",
				Laboratory:   "Mylan",
				MinStock:     8,
				SellingPrice: price("3.20"),
				CostPrice:    price("1.45"),
				Status:       catalog.ProductStatusActive,
			},
			qty:    40,
			expiry: time.Now().UTC().AddDate(0, 10, 0),
			lot:    "IBU-2027-04",
		},
		{
			product: catalog.Product{
				Name:         "Amoxicilline 1g",
				Description:  "Antibiotic tablets, box of 6",
				Laboratory:   "Biogaran",
				MinStock:     5,
				SellingPrice: price("5.80"),
				CostPrice:    price("2.90"),
				Status:       catalog.ProductStatusActive,
			},
			qty:    25,
			expiry: time.Now().UTC().AddDate(0, 0, 20),
			lot:    "AMX-2026-09",
		},
	}

	for _, sample := range sampleProducts {
		product := sample.product
		if err := m.db.Create(&product).Error; err != nil {
			log.Printf("⚠️ Failed to create sample product %s: %v", product.Name, err)
			continue
		}

		lot := stock.StockLot{
			ProductID:  product.ID,
			Quantity:   sample.qty,
			Expiration: sample.expiry,
			LotNumber:  sample.lot,
			Supplier:   "CERP",
		}
		if err := m.db.Create(&lot).Error; err != nil {
			log.Printf("⚠️ Failed to create sample lot for %s: %v", product.Name, err)
			continue
		}

		log.Printf("✅ Created sample product: %s (%d units)", product.Name, sample.qty)
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"inventory_items",
		"inventory_sessions",
		"alerts",
		"sale_items",
		"sales",
		"stock_movements",
		"stock_lots",
		"products",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}

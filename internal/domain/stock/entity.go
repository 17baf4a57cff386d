// internal/domain/stock/entity.go
package stock

import (
	"time"

	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeEntry      MovementType = "ENTRY"      // Lot received into stock
	MovementTypeSale       MovementType = "SALE"       // Depletion through a sale
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // Inventory count correction
	MovementTypeReturn     MovementType = "RETURN"     // Customer return
	MovementTypeExpiration MovementType = "EXPIRATION" // Expired stock written off
)

// StockLot represents a physically distinct batch of a product with its
// own expiration date. The on-hand quantity of a product is the sum of
// its lot quantities.
type StockLot struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	Expiration  time.Time `gorm:"not null;index" json:"expiration"`
	LotNumber   string    `gorm:"size:100" json:"lot_number"`
	Supplier    string    `gorm:"size:255" json:"supplier"`
	DeliveryDoc string    `gorm:"size:255" json:"delivery_doc"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Product catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Movement is an immutable audit record of a quantity change. Quantity
// is signed: positive for additions, negative for removals.
type Movement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProductID uint         `gorm:"not null;index" json:"product_id"`
	UserID    uint         `gorm:"not null;index" json:"user_id"`
	Type      MovementType `gorm:"size:20;not null;index" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	Reason    string       `gorm:"size:255" json:"reason"`
	Reference string       `gorm:"size:100" json:"reference"`
	CreatedAt time.Time    `json:"created_at"`

	// Relationships
	Product catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	User    user.User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName overrides
func (StockLot) TableName() string { return "stock_lots" }
func (Movement) TableName() string { return "stock_movements" }

// IsExpired reports whether the lot is past its expiration date
func (l *StockLot) IsExpired(now time.Time) bool {
	return l.Expiration.Before(now)
}

// ExpiresWithin reports whether the lot expires inside the given window
// from now, exclusive of already-expired lots.
func (l *StockLot) ExpiresWithin(now time.Time, window time.Duration) bool {
	return l.Expiration.After(now) && !l.Expiration.After(now.Add(window))
}

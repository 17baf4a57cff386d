// internal/domain/sale/entity.go
package sale

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
)

// PaymentMethod represents how a sale was paid
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodCard PaymentMethod = "CARD"
)

// Sale represents a completed point-of-sale transaction
type Sale struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Number        string          `json:"number" gorm:"uniqueIndex;not null;size:64"`
	UserID        uint            `json:"user_id" gorm:"not null;index"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"size:20;default:'CASH'"`
	CreatedAt     time.Time       `json:"created_at"`

	// Relationships
	User  user.User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items []SaleItem `json:"items,omitempty" gorm:"foreignKey:SaleID"`
}

// SaleItem represents one product line of a sale
type SaleItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	SaleID    uint            `json:"sale_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`

	// Relationships
	Product catalog.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// TableName returns the table name for SaleItem
func (SaleItem) TableName() string {
	return "sale_items"
}

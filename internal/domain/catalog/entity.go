// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus represents the lifecycle status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Product represents a sellable pharmacy item
type Product struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Name         string              `gorm:"not null;size:255;index" json:"name"`
	Description  string              `gorm:"type:text" json:"description"`
	Laboratory   string              `gorm:"size:255" json:"laboratory"`
	MinStock     int                 `gorm:"not null;default:0" json:"min_stock"`
	SellingPrice decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"selling_price"`
	CostPrice    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"cost_price"`
	Status       ProductStatus       `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	ArchivedAt   *time.Time          `json:"archived_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string { return "products" }

// IsArchived reports whether the product has been archived
func (p *Product) IsArchived() bool {
	return p.Status == ProductStatusArchived
}

// HasSellingPrice reports whether the product can be sold
func (p *Product) HasSellingPrice() bool {
	return p.SellingPrice.Valid
}

// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
)

// SessionStatus represents inventory session status
type SessionStatus string

const (
	SessionStatusOngoing   SessionStatus = "ONGOING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// InventorySession represents one physical stock count. Sessions move
// from ONGOING to COMPLETED and never back; at most one session is
// ONGOING at a time.
type InventorySession struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Status      SessionStatus `json:"status" gorm:"not null;size:20;default:'ONGOING';index"`
	StartedByID uint          `json:"started_by_id" gorm:"not null"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	// Relationships
	StartedBy user.User       `json:"started_by,omitempty" gorm:"foreignKey:StartedByID"`
	Items     []InventoryItem `json:"items,omitempty" gorm:"foreignKey:SessionID"`
}

// InventoryItem represents one product line of a count session
type InventoryItem struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	SessionID  uint `json:"session_id" gorm:"not null;index"`
	ProductID  uint `json:"product_id" gorm:"not null;index"`
	SystemQty  int  `json:"system_qty" gorm:"not null"`
	CountedQty int  `json:"counted_qty" gorm:"not null;default:0"`
	Difference int  `json:"difference" gorm:"not null"`
	Adjustment bool `json:"adjustment" gorm:"not null;default:false"`

	// Relationships
	Product catalog.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for InventorySession
func (InventorySession) TableName() string {
	return "inventory_sessions"
}

// TableName returns the table name for InventoryItem
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// IsOngoing checks if the session still accepts counts
func (s *InventorySession) IsOngoing() bool {
	return s.Status == SessionStatusOngoing
}

// internal/domain/alert/entity.go
package alert

import (
	"time"

	"github.com/your-org/pharmacy-backend/internal/domain/catalog"
)

// AlertType represents alert type
type AlertType string

const (
	AlertTypeLowStock   AlertType = "LOW_STOCK"
	AlertTypeExpirySoon AlertType = "EXPIRY_SOON"
	AlertTypeExpired    AlertType = "EXPIRED"
)

// AlertStatus represents alert status
type AlertStatus string

const (
	AlertStatusPending  AlertStatus = "PENDING"
	AlertStatusResolved AlertStatus = "RESOLVED"
)

// Alert represents an advisory raised by the sweeper. At most one
// PENDING alert exists per (product, type) pair.
type Alert struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	ProductID  uint        `json:"product_id" gorm:"not null;index"`
	Type       AlertType   `json:"type" gorm:"not null;size:20;index"`
	Message    string      `json:"message" gorm:"not null"`
	Status     AlertStatus `json:"status" gorm:"not null;size:20;default:'PENDING';index"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`

	// Relationships
	Product catalog.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for Alert
func (Alert) TableName() string {
	return "alerts"
}

// IsPending checks if the alert is still awaiting action
func (a *Alert) IsPending() bool {
	return a.Status == AlertStatusPending
}

// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/alert"
	"github.com/your-org/pharmacy-backend/internal/domain/analytics"
	"gorm.io/gorm"
)

// AnalyticsHandler handles dashboard endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	alertService     *alert.Service
	config           *config.Config
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analytics.NewService(db, cfg),
		alertService:     alert.NewService(db, cfg, logger),
		config:           cfg,
	}
}

// GetDashboard handles GET /dashboard. A sweep runs first so the
// pending-alert counter reflects current stock.
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	h.alertService.Sweep()

	stats, err := h.analyticsService.GetDashboardStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve dashboard statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard statistics retrieved successfully",
		"data":    stats,
	})
}

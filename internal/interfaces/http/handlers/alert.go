// internal/interfaces/http/handlers/alert.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/alert"
	"gorm.io/gorm"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	alertService *alert.Service
	config       *config.Config
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alert.NewService(db, cfg, logger),
		config:       cfg,
	}
}

// GetAlerts handles GET /alerts; a sweep runs first so the list
// reflects current stock
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	h.alertService.Sweep()

	var req alert.AlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	alerts, err := h.alertService.GetAlerts(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alerts retrieved successfully",
		"data":    alerts,
	})
}

// Sweep handles POST /alerts/sweep
func (h *AlertHandler) Sweep(c *gin.Context) {
	h.alertService.Sweep()

	pending, err := h.alertService.PendingCount()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alert sweep completed",
		"data": gin.H{
			"pending_alerts": pending,
		},
	})
}

// ResolveAlert handles POST /alerts/:id/resolve
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	alertID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid alert ID",
		})
		return
	}

	resolved, err := h.alertService.Resolve(uint(alertID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alert resolved successfully",
		"data":    resolved,
	})
}

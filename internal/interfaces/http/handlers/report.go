// internal/interfaces/http/handlers/report.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/report"
	"gorm.io/gorm"
)

// ReportHandler handles report export endpoints
type ReportHandler struct {
	reportService *report.Service
	config        *config.Config
}

// NewReportHandler creates a new report handler
func NewReportHandler(db *gorm.DB, cfg *config.Config) *ReportHandler {
	return &ReportHandler{
		reportService: report.NewService(db, cfg),
		config:        cfg,
	}
}

// Export handles GET /reports/:type, streaming the dataset as a CSV
// attachment
func (h *ReportHandler) Export(c *gin.Context) {
	reportType := report.ReportType(c.Param("type"))

	switch reportType {
	case report.ReportTypeInventory, report.ReportTypeMovements,
		report.ReportTypeAlerts, report.ReportTypeExpiring:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown report type '%s'", reportType),
		})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", h.reportService.Filename(reportType)))
	c.Status(http.StatusOK)

	if err := h.reportService.Export(reportType, c.Writer); err != nil {
		// headers are already on the wire, abort the stream
		c.Abort()
	}
}

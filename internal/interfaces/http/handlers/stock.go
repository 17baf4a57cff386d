// internal/interfaces/http/handlers/stock.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/stock"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// StockHandler handles stock lot and movement endpoints
type StockHandler struct {
	stockService *stock.Service
	config       *config.Config
}

// NewStockHandler creates a new stock handler
func NewStockHandler(db *gorm.DB, cfg *config.Config) *StockHandler {
	return &StockHandler{
		stockService: stock.NewService(db, cfg),
		config:       cfg,
	}
}

// AddLot handles POST /stocks
func (h *StockHandler) AddLot(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req stock.AddLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	lot, err := h.stockService.AddLot(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock lot added successfully",
		"data":    lot,
	})
}

// GetLots handles GET /stocks
func (h *StockHandler) GetLots(c *gin.Context) {
	lots, err := h.stockService.GetLots()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock lots retrieved successfully",
		"data":    lots,
	})
}

// GetExpiringLots handles GET /stocks/expiring
func (h *StockHandler) GetExpiringLots(c *gin.Context) {
	window := h.config.Alerts.ExpirySoonWindow
	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid days parameter",
			})
			return
		}
		window = time.Duration(n) * 24 * time.Hour
	}

	lots, err := h.stockService.GetExpiringLots(window)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Expiring lots retrieved successfully",
		"data":    lots,
	})
}

// GetOnHand handles GET /stocks/on-hand/:productId
func (h *StockHandler) GetOnHand(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	onHand, err := h.stockService.OnHand(uint(productID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"product_id": productID,
			"on_hand":    onHand,
		},
	})
}

// GetMovements handles GET /movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	var req stock.MovementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	movements, err := h.stockService.GetMovements(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movements retrieved successfully",
		"data":    movements,
	})
}

// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/handlers"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires every API route group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	logger := newLogger(cfg)

	setupAuthRoutes(rg, db, cfg)
	setupUserRoutes(rg, db, cfg)
	setupProductRoutes(rg, db, cfg)
	setupStockRoutes(rg, db, cfg)
	setupSaleRoutes(rg, db, cfg)
	setupAlertRoutes(rg, db, cfg, logger)
	setupInventoryRoutes(rg, db, cfg)
	setupDashboardRoutes(rg, db, cfg, logger)
	setupReportRoutes(rg, db, cfg)
}

// setupAuthRoutes sets up authentication related routes
func setupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
			protected.GET("/validate", authHandler.ValidateToken)
		}
	}
}

// setupUserRoutes sets up manager-level user management routes
func setupUserRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	userAdminHandler := handlers.NewUserAdminHandler(db, cfg)

	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(cfg))
	users.Use(middleware.ManagerMiddleware())
	{
		users.GET("", userAdminHandler.GetUsers)
		users.POST("", userAdminHandler.CreateUser)
	}
}

// setupProductRoutes sets up product catalog routes
func setupProductRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)

	products := rg.Group("/products")
	products.Use(middleware.AuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.POST("", productHandler.CreateProduct)
		products.PUT("/:id", productHandler.UpdateProduct)

		// Destructive catalog operations are manager-only
		managed := products.Group("")
		managed.Use(middleware.ManagerMiddleware())
		{
			managed.POST("/:id/archive", productHandler.ArchiveProduct)
			managed.POST("/:id/restore", productHandler.RestoreProduct)
			managed.DELETE("/:id", productHandler.DeleteProduct)
		}
	}
}

// setupStockRoutes sets up stock lot and movement routes
func setupStockRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	stockHandler := handlers.NewStockHandler(db, cfg)

	stocks := rg.Group("/stocks")
	stocks.Use(middleware.AuthMiddleware(cfg))
	{
		stocks.GET("", stockHandler.GetLots)
		stocks.POST("", stockHandler.AddLot)
		stocks.GET("/expiring", stockHandler.GetExpiringLots)
		stocks.GET("/on-hand/:productId", stockHandler.GetOnHand)
	}

	movements := rg.Group("/movements")
	movements.Use(middleware.AuthMiddleware(cfg))
	{
		movements.GET("", stockHandler.GetMovements)
	}
}

// setupSaleRoutes sets up point-of-sale routes
func setupSaleRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	saleHandler := handlers.NewSaleHandler(db, cfg)

	sales := rg.Group("/sales")
	sales.Use(middleware.AuthMiddleware(cfg))
	{
		sales.GET("", saleHandler.GetSales)
		sales.POST("", saleHandler.CreateSale)
		sales.GET("/:id", saleHandler.GetSale)
	}
}

// setupAlertRoutes sets up alert routes
func setupAlertRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, logger *logrus.Logger) {
	alertHandler := handlers.NewAlertHandler(db, cfg, logger)

	alerts := rg.Group("/alerts")
	alerts.Use(middleware.AuthMiddleware(cfg))
	{
		alerts.GET("", alertHandler.GetAlerts)
		alerts.POST("/sweep", alertHandler.Sweep)
		alerts.POST("/:id/resolve", alertHandler.ResolveAlert)
	}
}

// setupInventoryRoutes sets up inventory reconciliation routes
func setupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(db, cfg)

	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg))
	{
		sessions := inventory.Group("/sessions")
		{
			sessions.GET("", inventoryHandler.GetSessions)
			sessions.GET("/:id", inventoryHandler.GetSession)
			sessions.PUT("/:id/counts", inventoryHandler.RecordCounts)

			// Opening and closing a count is manager-only
			managed := sessions.Group("")
			managed.Use(middleware.ManagerMiddleware())
			{
				managed.POST("", inventoryHandler.StartSession)
				managed.POST("/:id/complete", inventoryHandler.CompleteSession)
			}
		}
	}
}

// setupDashboardRoutes sets up dashboard routes
func setupDashboardRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, logger *logrus.Logger) {
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg, logger)

	dashboard := rg.Group("/dashboard")
	dashboard.Use(middleware.AuthMiddleware(cfg))
	{
		dashboard.GET("", analyticsHandler.GetDashboard)
	}
}

// setupReportRoutes sets up report export routes
func setupReportRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	reportHandler := handlers.NewReportHandler(db, cfg)

	reports := rg.Group("/reports")
	reports.Use(middleware.AuthMiddleware(cfg))
	reports.Use(middleware.ManagerMiddleware())
	{
		reports.GET("/:type", reportHandler.Export)
	}
}

// newLogger builds the service logger the same way the request logger
// middleware does
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

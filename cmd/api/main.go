package main

import (
	"log"

	_ "inventory-admin/api/swagger" // swagger docs
	"inventory-admin/internal/config"
	"inventory-admin/internal/database"
	"inventory-admin/internal/handler"
	"inventory-admin/internal/middleware"
	"inventory-admin/internal/repository"
	"inventory-admin/internal/service"
	"inventory-admin/internal/websocket"
	"inventory-admin/pkg/validator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Inventory Purchasing API
// @version         1.0
// @description     Purchases, purchase approval and spreadsheet import/export of inventory.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	validator.Register()
	auth := middleware.NewAuth([]byte(cfg.JWTSecret))

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	inventoryTxRepo := repository.NewInventoryTxRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	purchaseService := service.NewPurchaseService(purchaseRepo, productRepo, supplierRepo, inventoryTxRepo, auditRepo, txManager, wsHub)
	inventoryService := service.NewInventoryService(productRepo, auditRepo, txManager, wsHub, cfg.ExportBatchSize)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	purchaseHandler := handler.NewPurchaseHandler(purchaseService, auth)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, auth)
	auditHandler := handler.NewAuditHandler(auditService, auth)

	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "ws_clients": wsHub.Clients()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(token string) error {
			_, err := auth.ParseToken(token)
			return err
		})
	})

	purchaseHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

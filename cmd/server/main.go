package main

import (
	"log"

	"billing-bridge/internal/api"
	"billing-bridge/internal/billing"
	"billing-bridge/internal/config"
	"billing-bridge/internal/database"
	"billing-bridge/internal/services"
	"billing-bridge/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging(config.AppConfig.Mode == "debug")

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	// Wire the billing core to the platform billing service
	store := services.NewStoreClient(config.AppConfig.BillingServiceURL)
	svc := billing.NewService(store)
	defer svc.Close()

	if config.AppConfig.SkipPurchaseVerification {
		logging.Infof("Purchase signature verification is disabled")
	}

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.NewBridge(svc, store))

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting %s on port %s", config.AppConfig.ServiceName, port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

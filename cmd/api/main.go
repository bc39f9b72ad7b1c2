package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/config"
	"marketplace-service/internal/handlers"
	"marketplace-service/internal/inbox"
	"marketplace-service/internal/kafka"
	"marketplace-service/internal/marketplace"
	"marketplace-service/internal/store"
	"marketplace-service/pkg/logger"
	"marketplace-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title           Marketplace Service API
// @version         1.0
// @description     Read-side service for the import/export marketplace: product listings with search, sort and windowed pagination, plus a per-viewer notification inbox reconciled against the product collection.

// @host      localhost:8082
// @BasePath  /api/v1

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting Marketplace Service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	appLogger.Info("🛒 Marketplace API Configuration",
		zap.String("base_url", cfg.MarketplaceBaseURL),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Int("page_size", cfg.PageSize),
	)

	appLogger.Info("🔔 Notification Configuration",
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("resurrect_deleted", cfg.ResurrectDeleted),
		zap.String("store_backend", cfg.StoreBackend),
	)

	appLogger.Info("🔐 JWT Configuration",
		zap.Int("secret_length", len(cfg.JWTSecret)),
		zap.String("note", "Token expiration: 24 hours"),
	)

	if cfg.UseKafka {
		appLogger.Info("📡 Kafka Configuration (Optional - product events nudge the inbox)",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic_products", cfg.KafkaTopicProduct),
			zap.String("group_id", cfg.KafkaGroupID),
			zap.Bool("enabled", cfg.UseKafka),
		)
	} else {
		appLogger.Info("📡 Kafka Configuration",
			zap.Bool("enabled", false),
			zap.String("note", "Kafka is disabled (USE_KAFKA=false)"),
		)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()

	// CORS middleware (must be first to handle preflight requests)
	router.Use(middleware.CORSMiddleware())

	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))

	// Request ID middleware (must be early in the chain)
	router.Use(middleware.RequestIDMiddleware(appLogger))

	// Initialize request ID store for idempotency
	appLogger.Info("🔧 Initializing request ID store for idempotency...")
	requestIDStore := middleware.NewInMemoryRequestIDStore()
	appLogger.Info("✅ Request ID store initialized successfully")

	// Idempotency middleware (protects the import and inbox write endpoints)
	router.Use(middleware.IdempotencyMiddleware(requestIDStore, appLogger, 5*time.Minute))

	// Error handler middleware
	router.Use(middleware.ErrorHandler(appLogger))

	// Store response middleware (for idempotency)
	router.Use(middleware.StoreResponseMiddleware(requestIDStore, appLogger, 5*time.Minute))

	// Initialize JWT manager
	appLogger.Info("🔧 Initializing JWT manager...")
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)
	authHandler := auth.NewAuthHandler(jwtManager, appLogger)
	appLogger.Info("✅ JWT manager initialized successfully")

	// Initialize marketplace API client
	appLogger.Info("🔧 Initializing marketplace client...")
	marketClient := marketplace.NewClient(cfg.MarketplaceBaseURL, cfg.RequestTimeout, appLogger)
	appLogger.Info("✅ Marketplace client initialized successfully")

	// Initialize notification store
	appLogger.Info("🔧 Initializing notification store...",
		zap.String("backend", cfg.StoreBackend),
	)
	notificationStore, err := store.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize notification store", zap.Error(err))
	}
	defer notificationStore.Close()
	appLogger.Info("✅ Notification store initialized successfully")

	// Initialize notification sessions
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	sessions := inbox.NewSessionManager(appCtx, marketClient, notificationStore, appLogger, inbox.Options{
		Interval:         cfg.PollInterval,
		ResurrectDeleted: cfg.ResurrectDeleted,
	})
	defer sessions.StopAll()

	// Initialize handlers
	appLogger.Info("🔧 Initializing handlers...")
	listingHandler := handlers.NewListingHandler(appLogger, cfg, marketClient, marketClient)
	inboxHandler := handlers.NewInboxHandler(appLogger, sessions)
	appLogger.Info("✅ Handlers initialized successfully")

	// Initialize Kafka consumer (optional)
	if cfg.UseKafka {
		appLogger.Info("🔧 Initializing Kafka consumer for product events...")
		kafkaConsumer, err := kafka.NewConsumer(cfg, sessions, appLogger)
		if err != nil {
			appLogger.Warn("Failed to initialize Kafka consumer, continuing with polling only", zap.Error(err))
		} else {
			defer kafkaConsumer.Close()
			go func() {
				if err := kafkaConsumer.Start(appCtx); err != nil {
					appLogger.Error("Kafka consumer error", zap.Error(err))
				}
			}()
			appLogger.Info("✅ Kafka consumer started for product events")
		}
	} else {
		appLogger.Info("⏭️  Skipping Kafka consumer (USE_KAFKA=false)")
	}

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint (public)
		v1.GET("/health", healthCheck)

		// Auth endpoints (public)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
		}

		// Protected endpoints (require JWT authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, appLogger))
		{
			products := protected.Group("/products")
			{
				products.GET("", listingHandler.ListProducts)
				products.GET("/paginated", listingHandler.ListProductsPaginated)
				products.GET("/:id", listingHandler.GetProduct)
			}

			protected.GET("/exports", listingHandler.ListExports)
			protected.GET("/imports", listingHandler.ListImports)
			protected.POST("/imports", listingHandler.CreateImport)
			protected.GET("/dashboard/stats", listingHandler.DashboardStats)

			inboxGroup := protected.Group("/inbox")
			{
				inboxGroup.GET("", inboxHandler.GetInbox)
				inboxGroup.GET("/unread-count", inboxHandler.GetUnreadCount)
				inboxGroup.POST("/read-all", inboxHandler.MarkAllRead)
				inboxGroup.POST("/:id/read", inboxHandler.MarkRead)
				inboxGroup.DELETE("/:id", inboxHandler.Remove)
			}
		}
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("🌐 Starting HTTP server",
			zap.String("address", ":"+cfg.Port),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Stop notification sessions before the HTTP server drains
	sessions.StopAll()
	appCancel()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

// healthCheck godoc
// @Summary      Health check endpoint
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "marketplace-service",
	})
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"returns-insight-service/config"
	"returns-insight-service/database"
	"returns-insight-service/engine"
	"returns-insight-service/handlers"
	"returns-insight-service/metrics"
	"returns-insight-service/middleware"
	"returns-insight-service/rabbitmq"
	"returns-insight-service/services"
	"returns-insight-service/shopify"
	"returns-insight-service/sync"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Validate required configuration
	if cfg.ShopifyAPIKey == "" || cfg.ShopifyAPISecret == "" {
		log.Fatal("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	// Initialize database
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := database.NewStore(db)
	metrics.Register()

	// Event publisher is optional; the engine runs without it.
	publisher, err := rabbitmq.NewPublisher(
		cfg.RabbitMQ.GetAMQPURL(),
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.InsightsGeneratedRoutingKey,
	)
	if err != nil {
		log.WithError(err).Warn("RabbitMQ unavailable, insight events will not be published")
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// WebSocket hub for dashboard pushes
	hub := services.NewInsightHub()
	go hub.Start()
	defer hub.Stop()

	// Insight engine and its collaborators
	opts := []engine.Option{engine.WithBroadcaster(hub)}
	if publisher != nil {
		opts = append(opts, engine.WithPublisher(publisher))
	}
	eng := engine.New(store, opts...)

	shopifyClient := shopify.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.ShopifyAPIVersion)
	syncService := sync.NewService(store, shopifyClient, cfg.SyncWindowDays)

	// Periodic regeneration over all installed merchants
	runner := engine.NewRunner(eng, store, cfg.EngineInterval)
	runner.Start()

	// Initialize handlers
	insightHandler := handlers.NewInsightHandler(store, eng, syncService, publisher, hub)
	authHandler := handlers.NewAuthHandler(cfg, store, shopifyClient, syncService, eng)
	websocketHandler := handlers.NewWebSocketHandler(hub, []byte(cfg.JWTSecret))

	r := gin.Default()
	if len(cfg.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Fatalf("Failed to set trusted proxies: %v", err)
		}
	}

	// CORS middleware for Gin
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Public routes
	r.GET("/health", insightHandler.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	auth := r.Group("/auth", middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	{
		auth.GET("/shopify", authHandler.BeginAuthHandler)
		auth.GET("/shopify/callback", authHandler.CallbackHandler)
	}
	r.GET("/ws/insights", websocketHandler.ListenInsights)

	// Authenticated API routes
	api := r.Group("/api/v3")
	api.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	api.Use(middleware.MerchantRateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	{
		api.GET("/health", insightHandler.HealthHandler)
		api.GET("/insights/:shop", insightHandler.GetInsightsHandler)
		api.POST("/insights/:shop/generate", insightHandler.GenerateHandler)
		api.PATCH("/insights/:shop/:id/status", insightHandler.UpdateInsightStatusHandler)
		api.GET("/metrics/:shop", insightHandler.MetricsHandler)
		api.POST("/sync/:shop", insightHandler.SyncHandler)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: r,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("starting HTTP server on %s:%s", cfg.Host, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	runner.Stop()

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kitovu/farmreg/api/internal/auth"
	"github.com/kitovu/farmreg/api/internal/config"
	"github.com/kitovu/farmreg/api/internal/database"
	"github.com/kitovu/farmreg/api/internal/handlers"
	"github.com/kitovu/farmreg/api/internal/logger"
	"github.com/kitovu/farmreg/api/internal/middleware"
	"github.com/kitovu/farmreg/api/internal/repository"
	"github.com/kitovu/farmreg/api/internal/services"
	"github.com/kitovu/farmreg/api/internal/storage"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting farmer registry API", map[string]interface{}{
		"version":     "0.1.0",
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Create attachment storage
	uploads, err := storage.NewUploadStore(cfg.Uploads.Dir)
	if err != nil {
		log.Fatal("Failed to initialize upload storage", err, map[string]interface{}{
			"dir": cfg.Uploads.Dir,
		})
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize repository and service layers
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userRepo := repository.NewUserRepository(db)
	farmerRepo := repository.NewFarmerRepository(db)
	authService := services.NewAuthService(userRepo, tokens, log)
	farmerService := services.NewFarmerService(farmerRepo, uploads, log)

	// Seed the bootstrap administrator account
	if err := authService.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("Failed to seed administrator account", err, map[string]interface{}{
			"email": cfg.Auth.AdminEmail,
		})
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	farmerHandler := handlers.NewFarmerHandler(farmerService)

	// Register API v1 routes
	requireAuth := middleware.RequireAuth(tokens)
	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/enumerators", requireAuth, middleware.RequireAdmin(), authHandler.CreateEnumerator)
			authRoutes.POST("/password", requireAuth, authHandler.ResetPassword)
		}

		farmers := v1.Group("/farmers", requireAuth)
		{
			farmers.POST("", farmerHandler.Create)
			farmers.PUT("/:id", farmerHandler.Update)
			farmers.GET("/:id", farmerHandler.Get)
		}

		farms := v1.Group("/farms", requireAuth)
		{
			farms.GET("/geometries", farmerHandler.Geometries)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

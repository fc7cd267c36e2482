package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentimages/hoster/internal/auth"
	"github.com/agentimages/hoster/internal/config"
	"github.com/agentimages/hoster/internal/database"
	"github.com/agentimages/hoster/internal/handlers"
	"github.com/agentimages/hoster/internal/logger"
	"github.com/agentimages/hoster/internal/middleware"
	"github.com/agentimages/hoster/internal/services"
	"github.com/agentimages/hoster/internal/storage"
)

func main() {
	cfg := config.Defaults()
	if err := config.Load("AGENTIMAGES_", &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log)

	// Initialize database
	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize blob storage
	blobs, err := storage.NewClient(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}
	if blobs.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := blobs.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure storage bucket: %v", err)
		}
		cancel()
	}

	// Initialize services
	tokenService := services.NewTokenService(database.NewTokenStore(db.Pool))
	imageService := services.NewImageService(database.NewImageStore(db.Pool))
	intentService := services.NewIntentService(tokenService, database.NewIntentStore(db.Pool), imageService, blobs)
	resolverService := services.NewResolverService(imageService, blobs)
	verifier := auth.NewVerifier(cfg.Auth.SessionSecret)

	// Initialize handlers
	tokenHandler := handlers.NewTokenHandler(tokenService)
	uploadHandler := handlers.NewUploadHandler(intentService)
	imageHandler := handlers.NewImageHandler(imageService, resolverService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Anonymous public image resolution
	router.GET("/i/:imageId", imageHandler.GetPublic)

	// CLI upload (bearer-token authenticated inside the handler)
	api := router.Group("/api")
	api.POST("/cli/upload", middleware.UploadRateLimitMiddleware(), uploadHandler.Upload)

	// Dashboard routes (identity-provider session required)
	dashboard := api.Group("")
	dashboard.Use(middleware.DashboardRateLimitMiddleware())
	dashboard.Use(middleware.SessionAuthMiddleware(verifier))
	dashboard.GET("/tokens", tokenHandler.List)
	dashboard.POST("/tokens", tokenHandler.Create)
	dashboard.DELETE("/tokens/:id", tokenHandler.Revoke)
	dashboard.GET("/images", imageHandler.List)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server stopped")
}

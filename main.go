package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chorus/groupware/config"
	"chorus/groupware/db"
	"chorus/groupware/handlers"
	"chorus/groupware/routes"
	"chorus/groupware/services"
	"chorus/groupware/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Initialize Redis client
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := services.NewRedisClient(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Initialize services
	presenceService := services.NewPresenceService(redisClient, logger)
	presenceService.SetPresenceTTL(cfg.PresenceTTL)

	provider := services.NewCommentsProvider(
		services.NewCommentSearch(database),
		services.NewUserDirectory(database),
		routes.NewURLGenerator(cfg.BaseURL, nil),
		logger,
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		Search:    handlers.NewSearchHandler(provider, cfg.SearchLimit, logger),
		Status:    handlers.NewStatusHandler(presenceService, logger),
		Logger:    logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting groupware server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

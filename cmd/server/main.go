package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zfogg/resonate/internal/config"
	"github.com/zfogg/resonate/internal/database"
	"github.com/zfogg/resonate/internal/engine"
	"github.com/zfogg/resonate/internal/handlers"
	"github.com/zfogg/resonate/internal/index"
	"github.com/zfogg/resonate/internal/logger"
	"github.com/zfogg/resonate/internal/metrics"
	"github.com/zfogg/resonate/internal/middleware"
)

func main() {
	// Initialize structured logging (before everything else)
	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Resonate server starting ===")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Log.Warn(".env file not found, using system environment variables")
	}

	// Engine configuration (defaults, optional YAML file, env overrides)
	cfg, err := config.Load(os.Getenv("RESONATE_CONFIG"))
	if err != nil {
		logger.Log.Fatal("Invalid engine configuration", zap.Error(err))
	}

	// Durable fingerprint store
	db, err := database.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Log.Info("Database ready")

	eng, err := engine.New(cfg, index.NewStore(db))
	if err != nil {
		logger.Log.Fatal("Failed to build engine", zap.Error(err))
	}

	metrics.Initialize()

	// Router
	if os.Getenv("ENVIRONMENT") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(cors.Default())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	handlers.NewHandlers(eng).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8787"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Forced shutdown", zap.Error(err))
	}
	logger.Log.Info("Server stopped")
}

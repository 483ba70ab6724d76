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

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chamapesa/backend/internal/chain"
	"github.com/chamapesa/backend/internal/config"
	"github.com/chamapesa/backend/internal/contributions"
	"github.com/chamapesa/backend/internal/database"
	"github.com/chamapesa/backend/internal/groups"
	"github.com/chamapesa/backend/internal/identities"
	"github.com/chamapesa/backend/internal/notifications"
	"github.com/chamapesa/backend/internal/redis"
	"github.com/chamapesa/backend/internal/server"
	"github.com/chamapesa/backend/internal/tokens"
	"github.com/chamapesa/backend/pkg/logger"
	"github.com/chamapesa/backend/pkg/metrics"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Create logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			zapLogger.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	// Optional Redis connection for token revocation and quote caching
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(zapLogger, redis.Config{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}

	// Create services
	identitiesSvc, err := identities.NewService(zapLogger, db, redisClient, cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration)
	if err != nil {
		zapLogger.Fatal("Failed to create identities service", zap.Error(err))
	}

	groupsSvc, err := groups.NewService(zapLogger, db)
	if err != nil {
		zapLogger.Fatal("Failed to create groups service", zap.Error(err))
	}

	notificationsSvc, err := notifications.NewService(zapLogger, db)
	if err != nil {
		zapLogger.Fatal("Failed to create notifications service", zap.Error(err))
	}

	contributionsSvc, err := contributions.NewService(zapLogger, db, notificationsSvc)
	if err != nil {
		zapLogger.Fatal("Failed to create contributions service", zap.Error(err))
	}

	tokensSvc, err := tokens.NewService(zapLogger, db, redisClient, cfg.Tokens.RefreshInterval, cfg.Tokens.CacheTTL)
	if err != nil {
		zapLogger.Fatal("Failed to create tokens service", zap.Error(err))
	}

	// Optional Avalanche C-Chain client
	var chainClient *chain.Client
	if cfg.Chain.Enabled {
		chainClient, err = chain.NewClient(zapLogger, db, cfg.Chain.RPCURL, cfg.Chain.FactoryAddress)
		if err != nil {
			zapLogger.Fatal("Failed to create chain client", zap.Error(err))
		}
		defer chainClient.Close()
	}

	// Schedule the overdue sweep
	overdueTicker := time.NewTicker(cfg.Jobs.OverdueInterval)
	go func() {
		for range overdueTicker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := contributionsSvc.FlagOverdue(ctx, time.Now().UTC()); err != nil {
				zapLogger.Error("Overdue sweep failed", zap.Error(err))
			}
			cancel()
		}
	}()

	// Schedule DB pool metrics collection every 30s
	poolTicker := time.NewTicker(30 * time.Second)
	go func() {
		for range poolTicker.C {
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.DBOpenConns.WithLabelValues("postgres").Set(float64(stats.OpenConnections))
				metrics.DBIdleConns.WithLabelValues("postgres").Set(float64(stats.Idle))
				metrics.DBInUseConns.WithLabelValues("postgres").Set(float64(stats.InUse))
			}
		}
	}()

	// Start services
	if err := identitiesSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start identities service", zap.Error(err))
	}
	if err := groupsSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start groups service", zap.Error(err))
	}
	if err := notificationsSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start notifications service", zap.Error(err))
	}
	if err := contributionsSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start contributions service", zap.Error(err))
	}
	if err := tokensSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start tokens service", zap.Error(err))
	}

	// Create HTTP server
	apiServer := server.NewServer(zapLogger, identitiesSvc, groupsSvc, contributionsSvc, notificationsSvc, tokensSvc, chainClient)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	overdueTicker.Stop()
	poolTicker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}

	// Stop services in reverse order
	if err := tokensSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop tokens service", zap.Error(err))
	}
	if err := contributionsSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop contributions service", zap.Error(err))
	}
	if err := notificationsSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop notifications service", zap.Error(err))
	}
	if err := groupsSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop groups service", zap.Error(err))
	}
	if err := identitiesSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop identities service", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	zapLogger.Info("Server exited properly")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"jewelquote/internal/config"
	"jewelquote/internal/rates"
	"jewelquote/internal/server"
	"jewelquote/internal/storage"
	"jewelquote/pkg/logger"
	"jewelquote/pkg/redis"
	"jewelquote/pkg/spotfeed"
)

// ENTRY POINT

const shutdownTimeout = 10 * time.Second

func main() {
	zapLogger, err := logger.New()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load config", zap.Error(err))
	}

	redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	pgStorage, err := storage.NewPostgresStorage(ctx, storage.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	if err := storage.RunMigrations(ctx, pgStorage.DB().DB, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	rateProvider := rates.NewPostgresProvider(pgStorage.DB(), zapLogger)
	cachedProvider := rates.NewCachedProvider(rateProvider, redisClient, cfg.RateCacheTTL, zapLogger)

	var feed server.SpotFeed
	if cfg.SpotFeedURL != "" {
		feed = spotfeed.NewClient(cfg.SpotFeedURL, cfg.SpotFeedAPIKey, zapLogger)
	}

	srv := server.New(server.Options{
		Storage:    pgStorage,
		Provider:   cachedProvider,
		RateAdmin:  rateProvider,
		Feed:       feed,
		JWTSecret:  cfg.JWTSecret,
		RateLimit:  cfg.QuoteRateLimit,
		RateWindow: cfg.QuoteRateWindow,
		Logger:     zapLogger,
	})

	go func() {
		<-ctx.Done()
		zapLogger.Info("Shutting down HTTP server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
	if err := srv.Start(cfg.HTTPAddr); err != nil {
		zapLogger.Info("HTTP server stopped", zap.Error(err))
	}

	zapLogger.Info("Shutdown complete")
}

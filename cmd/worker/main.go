package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dcl-platform/metamorph/internal/config"
	"github.com/dcl-platform/metamorph/internal/converter"
	"github.com/dcl-platform/metamorph/internal/downloader"
	"github.com/dcl-platform/metamorph/internal/infrastructure/kv"
	"github.com/dcl-platform/metamorph/internal/infrastructure/queue"
	"github.com/dcl-platform/metamorph/internal/infrastructure/storage"
	"github.com/dcl-platform/metamorph/internal/mediatype"
	"github.com/dcl-platform/metamorph/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Leftover scratch from a previous crash would otherwise accumulate
	// under the shared temp root.
	if err := os.RemoveAll(cfg.Worker.TempDir); err != nil {
		logger.Warn("failed to sweep temp directory", slog.String("error", err.Error()))
	}
	if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")
	kvStore := kv.NewRedisStore(redisClient)

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:      cfg.MinIO.Endpoint,
		AccessKey:     cfg.MinIO.AccessKey,
		SecretKey:     cfg.MinIO.SecretKey,
		Bucket:        cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicBaseURL: cfg.MinIO.PublicBaseURL,
		CDNHost:       cfg.MinIO.CDNHost,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL(), cfg.RabbitMQ.QueueName))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer func() { _ = queueClient.Close() }()
	logger.Info("connected to RabbitMQ")

	dlCfg := downloader.DefaultConfig(cfg.Worker.TempDir)
	dlCfg.MaxBytes = cfg.Conversion.MaxDownloadBytes()
	dl := downloader.New(dlCfg)

	convCfg := converter.DefaultConfig()
	convCfg.ToktxPath = cfg.Conversion.ToktxPath
	convCfg.FFmpegPath = cfg.Conversion.FFmpegPath

	engine := usecase.NewCacheEngine(kvStore, storageClient, dl, usecase.CacheEngineConfig{
		MinMaxAge: cfg.Conversion.MinMaxAge,
		Version:   cfg.Conversion.CacheVersion,
	})
	convQueue := usecase.NewConversionQueue(queueClient, kvStore, usecase.ConversionQueueConfig{
		InFlightTTL: usecase.DefaultInFlightTTL,
		Version:     cfg.Conversion.CacheVersion,
	})

	pool := usecase.NewWorkerPool(convQueue, engine, dl, converter.New(convCfg), mediatype.Detect, usecase.WorkerPoolConfig{
		Workers: cfg.Worker.Count,
		TempDir: cfg.Worker.TempDir,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker pool", slog.Int("workers", cfg.Worker.Count))
		errCh <- pool.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker pool error: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	// Cancelling stops dequeues and aborts in-flight tool invocations;
	// their in-flight markers expire and the jobs get re-enqueued on the
	// next lookup.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker pool error: %w", err)
		}
		logger.Info("all in-flight conversions completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, abandoning in-flight conversions")
	}

	logger.Info("worker stopped")
	return nil
}

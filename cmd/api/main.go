package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dcl-platform/metamorph/internal/api/handler"
	"github.com/dcl-platform/metamorph/internal/api/middleware"
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

	var (
		cache     usecase.ConversionCache
		convQueue *usecase.ConversionQueue
		cacheDir  string
	)

	if cfg.Conversion.LocalCache {
		// Single-node mode: directory cache, in-process queue, in-process
		// workers. The api binary is the whole system.
		localCache, err := usecase.NewLocalCache(
			cfg.Conversion.LocalCacheDir,
			fmt.Sprintf("http://localhost:%d/cache/", cfg.Server.Port),
		)
		if err != nil {
			return fmt.Errorf("failed to create local cache: %w", err)
		}
		cache = localCache
		cacheDir = localCache.Dir()

		memQueue := queue.NewMemoryQueue()
		defer func() { _ = memQueue.Close() }()
		convQueue = usecase.NewConversionQueue(memQueue, nil, usecase.ConversionQueueConfig{
			Version: cfg.Conversion.CacheVersion,
		})

		if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		dlCfg := downloader.DefaultConfig(cfg.Worker.TempDir)
		dlCfg.MaxBytes = cfg.Conversion.MaxDownloadBytes()
		dl := downloader.New(dlCfg)

		convCfg := converter.DefaultConfig()
		convCfg.ToktxPath = cfg.Conversion.ToktxPath
		convCfg.FFmpegPath = cfg.Conversion.FFmpegPath

		pool := usecase.NewWorkerPool(convQueue, localCache, dl, converter.New(convCfg), mediatype.Detect, usecase.WorkerPoolConfig{
			Workers: cfg.Worker.Count,
			TempDir: cfg.Worker.TempDir,
		})
		go func() {
			if err := pool.Run(ctx); err != nil {
				logger.Error("worker pool stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("running in local cache mode", slog.String("dir", cacheDir))
	} else {
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

		head := downloader.New(downloader.DefaultConfig(cfg.Worker.TempDir))
		engine := usecase.NewCacheEngine(kvStore, storageClient, head, usecase.CacheEngineConfig{
			MinMaxAge: cfg.Conversion.MinMaxAge,
			Version:   cfg.Conversion.CacheVersion,
		})
		cache = engine
		convQueue = usecase.NewConversionQueue(queueClient, kvStore, usecase.ConversionQueueConfig{
			InFlightTTL: usecase.DefaultInFlightTTL,
			Version:     cfg.Conversion.CacheVersion,
		})
	}

	refresh := usecase.NewRefreshPipeline(cache, convQueue, usecase.DefaultRefreshPipelineConfig())
	if engine, ok := cache.(*usecase.CacheEngine); ok {
		engine.SetRefreshHinter(refresh)
	}
	refreshDone := make(chan struct{})
	go func() {
		refresh.Run(ctx)
		close(refreshDone)
	}()

	waiter := usecase.NewWaiter(cache, usecase.WaiterConfig{
		WaitTimeout:  cfg.Conversion.WaitTimeout,
		PollInterval: cfg.Conversion.PollInterval,
	})
	svc := usecase.NewConvertService(cache, convQueue, waiter)

	r := setupRouter(logger, svc, cfg.Metrics.BearerToken, cacheDir)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Let the refresh pipeline drain buffered hints. Run bounds the drain
	// with its own deadline, so this wait is finite.
	cancel()
	<-refreshDone

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, svc *usecase.ConvertService, metricsToken, cacheDir string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	convert := handler.NewConvertHandler(svc)
	r.Get("/convert", convert.Convert)
	r.Head("/convert", convert.Convert)

	r.Get("/health/live", handler.Live)
	r.Method(http.MethodGet, "/metrics", handler.Metrics(metricsToken))

	if cacheDir != "" {
		// Local mode serves converted artifacts straight from disk.
		fs := http.StripPrefix("/cache/", http.FileServer(http.Dir(cacheDir)))
		r.Method(http.MethodGet, "/cache/*", fs)
	}

	return r
}

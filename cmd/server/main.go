package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/core/services/directory"
	"github.com/astrocub/prompt-service/internal/core/services/events"
	"github.com/astrocub/prompt-service/internal/core/services/snapshot"
	"github.com/astrocub/prompt-service/internal/infrastructure/cache"
	"github.com/astrocub/prompt-service/internal/infrastructure/database"
	"github.com/astrocub/prompt-service/internal/infrastructure/database/repositories"
	"github.com/astrocub/prompt-service/internal/infrastructure/queue"
	"github.com/astrocub/prompt-service/internal/infrastructure/storage"
	"github.com/astrocub/prompt-service/internal/pkg/config"
	"github.com/astrocub/prompt-service/internal/pkg/logger"
	"github.com/astrocub/prompt-service/internal/server"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.Initialize(cfg.Environment)
	cfg.LogConfig()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database
	db, err := database.NewPostgresDB(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.AutoMigrate(&domain.Prompt{}, &domain.PipelineEvent{}); err != nil {
		appLogger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Cache is optional: without Redis every read goes to the database
	var dirCache directory.Cache
	redisCache, err := cache.NewRedisCache(&cfg.Cache, appLogger)
	if err != nil {
		appLogger.Warn("redis unavailable, serving without cache", slog.Any("error", err))
		redisCache = nil
	} else {
		defer redisCache.Close()
		dirCache = redisCache
	}

	// Queue
	asynqClient, err := queue.NewAsynqClient(&cfg.Queue, appLogger)
	if err != nil {
		appLogger.Error("failed to create queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer asynqClient.Close()

	// Repositories
	promptRepo := repositories.NewPromptRepository(db.DB, logger.NewServiceLogger("prompt-repository"))
	eventRepo := repositories.NewEventRepository(db.DB, logger.NewServiceLogger("event-repository"))

	// Services
	directoryService := directory.NewService(
		directory.Config{CacheTTL: time.Duration(cfg.Cache.PromptTTL) * time.Second},
		promptRepo,
		dirCache,
		logger.NewServiceLogger("prompt-directory"),
	)
	recorder := events.NewRecorder(asynqClient, logger.NewServiceLogger("event-recorder"))

	snapshotStore, err := storage.NewLocalStorage(
		&storage.LocalStorageConfig{BasePath: cfg.Snapshot.Dir},
		logger.NewServiceLogger("snapshot-storage"),
	)
	if err != nil {
		appLogger.Error("failed to initialize snapshot storage", slog.Any("error", err))
		os.Exit(1)
	}
	snapshotService := snapshot.NewService(promptRepo, snapshotStore, logger.NewServiceLogger("snapshot"))

	// Background worker
	asynqServer, err := queue.NewAsynqServer(&cfg.Queue, appLogger)
	if err != nil {
		appLogger.Error("failed to create queue server", slog.Any("error", err))
		os.Exit(1)
	}
	eventWorker := events.NewWorker(eventRepo, logger.NewServiceLogger("event-worker"))
	asynqServer.HandleFunc(queue.TaskTypeEventRecord, eventWorker.HandleRecordTask)
	asynqServer.HandleFunc(queue.TaskTypePromptSnapshot, snapshotService.HandleSnapshotTask)

	go func() {
		if err := asynqServer.Start(); err != nil {
			appLogger.Error("queue server stopped", slog.Any("error", err))
		}
	}()

	// HTTP
	promptHandler := server.NewPromptHandler(
		directoryService,
		recorder,
		asynqClient,
		cfg.Directory.DefaultEditor,
		logger.NewServiceLogger("prompt-handler"),
	)
	healthHandler := server.NewHealthHandler(db, redisCache)

	router := server.NewRouter(server.RouterConfig{
		PromptHandler:    promptHandler,
		HealthHandler:    healthHandler,
		CORSAllowOrigins: cfg.Server.CORSAllowOrigins,
		Logger:           appLogger,
	})

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Info("http server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("http server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown failed", slog.Any("error", err))
	}
	asynqServer.Shutdown()
}

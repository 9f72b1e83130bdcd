package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/JaRodriguez97/back-adviser/internal/api/router"
	"github.com/JaRodriguez97/back-adviser/internal/clients"
	appconfig "github.com/JaRodriguez97/back-adviser/internal/config"
	"github.com/JaRodriguez97/back-adviser/internal/conversation"
	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/observability/metrics"
	"github.com/JaRodriguez97/back-adviser/internal/schedule"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting back-adviser API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	turnDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open turn database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = turnDB.Close() }()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, dedup falls back to the database", "error", err)
		}
	}

	var oracle conversation.Oracle
	if cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiOracle(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to initialize gemini oracle", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		oracle = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, replies degrade to deterministic fallbacks")
	}

	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	// Stores.
	tenantStore := tenancy.NewStore(pool)
	clientStore := clients.NewStore(pool)
	scheduleStore := schedule.NewStore(pool)
	turnStore := messages.NewTurnStore(turnDB)
	deduper := messages.NewDeduplicator(rdb, turnStore, cfg.DedupCacheTTL, logger)

	// Pipeline.
	resolver := schedule.NewResolver(scheduleStore, cfg.SlotSearchDays, cfg.MinSlotGapMinutes)
	engine := conversation.NewEngine(conversation.EngineParams{
		Builder:  conversation.NewContextBuilder(tenantStore, turnStore, cfg.HistoryWindow),
		Clients:  clientStore,
		Turns:    turnStore,
		Deduper:  deduper,
		Gate:     conversation.NewGate(oracle, logger),
		Oracle:   oracle,
		Composer: conversation.NewComposer(oracle, logger),
		Book:     scheduleStore,
		Resolver: resolver,
		Logger:   logger,
	})
	dispatcher := conversation.NewDispatcher(
		engine,
		cfg.MaxMessagesPerWindow,
		cfg.WindowTime,
		cfg.ItemTimeout,
		pipelineMetrics,
		logger,
	)
	dispatcher.Start()

	r := router.New(&router.Config{
		Logger:             logger,
		IntakeHandler:      conversation.NewHandler(dispatcher, deduper, logger),
		TenantHandler:      tenancy.NewHandler(tenantStore, logger),
		ScheduleHandler:    schedule.NewHandler(scheduleStore, logger),
		APIKeyResolver:     tenantStore,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metrics.Handler(),
		RequestMetrics:     pipelineMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

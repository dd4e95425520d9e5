package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/config"
	"github.com/siloforge/siloforge-engine/pkg/database"
	"github.com/siloforge/siloforge-engine/pkg/handlers"
	"github.com/siloforge/siloforge-engine/pkg/logging"
	"github.com/siloforge/siloforge-engine/pkg/oracle"
	"github.com/siloforge/siloforge-engine/pkg/ratelimit"
	"github.com/siloforge/siloforge-engine/pkg/repositories"
	"github.com/siloforge/siloforge-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr := cfg.Database.ConnectionString()
	logger.Info("Connecting to database",
		zap.String("conn", logging.SanitizeConnectionString(connStr)))

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	caps, err := repositories.DetectCapabilities(ctx, db, logger)
	if err != nil {
		logger.Fatal("Failed to probe schema capabilities", zap.Error(err))
	}

	siloRepo := repositories.NewSiloRepository(db, caps)
	hierarchyRepo := repositories.NewHierarchyRepository(db)
	occRepo := repositories.NewOccurrenceRepository(db, caps)
	linkAuditRepo := repositories.NewLinkAuditRepository(db, caps)
	siloAuditRepo := repositories.NewSiloAuditRepository(db)

	limiter, err := ratelimit.NewCallerLimiter(cfg.Engine.RateLimitRequests, cfg.Engine.RateLimitWindow)
	if err != nil {
		logger.Fatal("Failed to build rate limiter", zap.Error(err))
	}

	var reranker oracle.Reranker
	if cfg.Oracle.IsAvailable() {
		client, err := oracle.NewClient(&oracle.Config{
			Endpoint: cfg.Oracle.Endpoint,
			Model:    cfg.Oracle.Model,
			APIKey:   cfg.Oracle.APIKey,
			Timeout:  cfg.Oracle.Timeout,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to build oracle client", zap.Error(err))
		}
		reranker = client
		logger.Info("Oracle reranking enabled", zap.String("model", cfg.Oracle.Model))
	} else {
		logger.Info("Oracle reranking disabled, heuristics only")
	}

	auditService := services.NewAuditService(
		siloRepo, hierarchyRepo, occRepo, linkAuditRepo, siloAuditRepo, logger)
	suggestService := services.NewSuggestService(
		siloRepo, hierarchyRepo, limiter, reranker,
		services.SuggestLimits{
			BodyMinWords:      cfg.Engine.BodyMinWords,
			BodyMaxWords:      cfg.Engine.BodyMaxWords,
			MaxSuggestions:    cfg.Engine.MaxSuggestions,
			MaxSuggestionsCap: cfg.Engine.MaxSuggestionsCap,
		}, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuditHandler(auditService, logger).RegisterRoutes(mux)
	handlers.NewSuggestHandler(suggestService, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting siloforge-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.String("environment", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// buildLogger picks the zap preset for the environment: human-readable in
// local development, JSON everywhere else.
func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

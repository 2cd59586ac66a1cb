package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/config"
	"github.com/sitewire-io/sitewire-engine/pkg/database"
	"github.com/sitewire-io/sitewire-engine/pkg/handlers"
	"github.com/sitewire-io/sitewire-engine/pkg/logging"
	"github.com/sitewire-io/sitewire-engine/pkg/repositories"
	"github.com/sitewire-io/sitewire-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host),
		zap.Duration("cache_freshness_window", cfg.Cache.FreshnessWindow()))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	projectRepo := repositories.NewProjectRepository(db)
	roomRepo := repositories.NewRoomRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	equipmentRepo := repositories.NewEquipmentRepository(db)
	linkRepo := repositories.NewEquipmentLinkRepository(db)
	wireDropRepo := repositories.NewWireDropRepository(db)

	milestoneSvc := services.NewMilestoneService(equipmentRepo, wireDropRepo, logger)

	cacheOpts := []services.CacheOption{}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, services.WithRedis(redisClient))
	}
	progressCache := services.NewProgressCache(
		milestoneSvc.Compute, cfg.Cache.FreshnessWindow(), logger, cacheOpts...)

	reconciliationSvc := services.NewReconciliationService(
		equipmentRepo, roomRepo, catalogRepo, linkRepo, progressCache,
		cfg.Import.MaxQuantityPerRow, logger)
	quantitySvc := services.NewQuantityService(equipmentRepo, progressCache, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewReconciliationHandler(reconciliationSvc, projectRepo, cfg.Import.MaxRows, logger).RegisterRoutes(mux)
	handlers.NewProcurementHandler(quantitySvc, logger).RegisterRoutes(mux)
	handlers.NewProgressHandler(progressCache, projectRepo, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting sitewire-engine",
		zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

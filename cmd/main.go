package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelwatch/db"
	"travelwatch/internal/config"
	"travelwatch/internal/detection"
	"travelwatch/internal/geolocation"
	"travelwatch/internal/shipper"
	"travelwatch/internal/web"
	"travelwatch/middleware"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	logger := newLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = newLogger(cfg.LogLevel)

	logger.Info().
		Float64("time_window_minutes", cfg.TimeWindowMinutes).
		Int("max_records_per_user", cfg.MaxRecordsPerUser).
		Float64("min_distance_km", cfg.MinDistanceKm).
		Str("database_type", string(cfg.DatabaseType)).
		Str("geo_provider", string(cfg.GeoProvider)).
		Msg("starting impossible travel detection service")

	// Storage backend
	var sqliteDB *sql.DB
	var mongoClient *mongo.Client

	switch cfg.DatabaseType {
	case config.SQLite:
		sqliteDB, err = db.ConnectToSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to SQLite")
		}
		if err := db.InitializeSchema(sqliteDB); err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize database schema")
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("connected to SQLite database")
	case config.MongoDB:
		mongoClient, err = db.ConnectToMongo(cfg.MongoURI)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureMongoIndexes(ctx, mongoClient, cfg.DatabaseName); err != nil {
			logger.Fatal().Err(err).Msg("failed to create MongoDB indexes")
		}
		cancel()
		logger.Info().Msg("connected to MongoDB")
	}

	repoFactory := db.NewRepositoryFactory(sqliteDB, mongoClient, cfg.DatabaseName)
	loginRepo := repoFactory.NewLoginHistoryRepository()
	dbManager := db.NewDBManager()

	// Geolocation resolver
	var resolver geolocation.Resolver
	switch cfg.GeoProvider {
	case config.MMDB:
		resolver, err = geolocation.NewMMDBService(cfg.GeoIPDBPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open GeoIP database")
		}
	default:
		resolver = geolocation.NewIPAPIService(cfg.GeoTimeout, logger)
	}
	if sqliteDB != nil {
		cache := db.NewGeolocationCacheRepository(sqliteDB)
		resolver = geolocation.NewCachedResolver(resolver, cache, cfg.GeoCacheTTL, logger)
	}

	// Optional GELF alert shipping
	var eventShipper *shipper.EventShipper
	if cfg.GELFAddr != "" {
		eventShipper, err = shipper.NewEventShipper(cfg.GELFAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.GELFAddr).Msg("failed to connect GELF shipper")
		}
		logger.Info().Str("addr", cfg.GELFAddr).Msg("GELF event shipping enabled")
	}

	thresholds := detection.Thresholds{
		TimeWindowMinutes: cfg.TimeWindowMinutes,
		MinDistanceKm:     cfg.MinDistanceKm,
	}
	detectionService := detection.NewDetectionService(
		loginRepo, dbManager, resolver, eventShipper, thresholds, cfg.MaxRecordsPerUser, logger)
	handlers := detection.NewDetectionHandlers(detectionService, logger)

	router := web.SetupRoutes(handlers)
	handler := middleware.RequestLogging(logger)(middleware.SetupCORS()(router))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(server, logger, func() {
		dbManager.Stop()
		if err := resolver.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close geolocation resolver")
		}
		if eventShipper != nil {
			if err := eventShipper.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close GELF shipper")
			}
		}
		if err := loginRepo.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close login history store")
		}
	})
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func waitForShutdown(server *http.Server, logger zerolog.Logger, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	cleanup()
	logger.Info().Msg("shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gearbook/internal/api"
	"gearbook/internal/audit"
	"gearbook/internal/config"
	"gearbook/internal/database"
	"gearbook/internal/engine"
	"gearbook/internal/events"
	"gearbook/internal/google"
	"gearbook/internal/metrics"
	"gearbook/internal/service"
	"gearbook/internal/snapshot"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("GEARBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()

	// Equipment catalog: initial sync, then reload whenever the file
	// changes. A sync can touch closed dates too, so both topics fire.
	err = config.WatchCatalog(ctx, os.Getenv("GEARBOOK_CATALOG_PATH"), 30*time.Second, func(catalog *config.CatalogConfig) {
		syncCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.SyncEquipmentFromCatalog(syncCtx, catalog); err != nil {
			logger.Error().Err(err).Msg("equipment catalog sync failed")
			return
		}
		bus.Publish(events.Event{Topic: events.TopicEquipmentSynced})
		bus.Publish(events.Event{Topic: events.TopicClosedDatesChanged})
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("load equipment catalog error")
	}

	snapshots := snapshot.NewProvider(db, &logger)
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		snapshots.UseRedisCache(rdb, cfg.SnapshotTTL())
	}
	snapshots.BindInvalidation(bus)

	eng := engine.New(engine.Config{
		MinDurationMinutes: cfg.Booking.MinDurationMinutes,
		MaxDurationMinutes: cfg.Booking.MaxDurationMinutes,
		PickupWindow:       cfg.BookingPickupWindow(),
	})

	reservations := service.NewReservationService(db, snapshots, eng, bus, &logger)
	admin := service.NewAdminService(db, bus, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Audit.Enabled {
		auditSvc := audit.NewService(&audit.Config{
			RetentionMonths: cfg.Audit.RetentionMonths,
			ExportPath:      cfg.Audit.ExportPath,
		}, db, audit.NewExcelizeWriter, db, &logger)
		auditSvc.Start()
		defer auditSvc.Stop()
	}

	if cfg.Sheets.Enabled {
		sheetsSvc, err := google.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.HorizonDays, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("sheets mirror unavailable, continuing without it")
		} else {
			sheetsSvc.BindEvents(bus)
			go sheetsSvc.Run(ctx, 15*time.Minute)
		}
	}

	go database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger).Start(ctx)

	srv := api.NewServer(reservations, admin, &logger, api.Options{
		Addr:           fmt.Sprintf(":%d", cfg.ServerPort()),
		ReadTimeout:    cfg.ServerReadTimeout(),
		WriteTimeout:   cfg.ServerWriteTimeout(),
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Int("port", cfg.ServerPort()).Msg("gearbook server started")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("gearbook server stopped")
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

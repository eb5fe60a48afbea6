// Command riskd serves the crop risk API, consumes weather updates from Kafka
// and periodically recomputes risk for stored crops.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crop-risk-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/crop-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crop-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/crop-risk-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/crop-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/crop-risk-service/internal/config"
	"github.com/couchcryptid/crop-risk-service/internal/cropcycle"
	"github.com/couchcryptid/crop-risk-service/internal/notify"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
	"github.com/couchcryptid/crop-risk-service/internal/pipeline"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
	"github.com/couchcryptid/crop-risk-service/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMaxConnIdle, cfg.DBMaxConnLife, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DBMigrateOnStart {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	farmers := postgres.NewFarmerRepository(pool)
	cycles := postgres.NewCropCycleRepository(pool)
	snapshots := postgres.NewSnapshotRepository(pool)
	notifications := postgres.NewNotificationRepository(pool)
	definitions := cache.NewDefinitions(postgres.NewDefinitionRepository(pool), cfg.DefinitionCacheSize, cfg.DefinitionCacheTTL, metrics)
	weather := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)

	// Alerts always land in Postgres; Kafka delivery is best effort.
	targets := []notify.Target{{Name: "postgres", Sink: notifications, Required: true}}
	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		targets = append(targets, notify.Target{Name: "kafka", Sink: alertWriter})
	}

	riskSvc := risk.NewService(risk.Stores{
		Farmers:     farmers,
		CropCycles:  cycles,
		Definitions: definitions,
		Snapshots:   snapshots,
	}, weather, notify.NewFanout(logger, targets...), clock, logger, metrics)
	cropSvc := cropcycle.NewService(cycles, farmers, definitions, clock, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, postgres.NewReadiness(pool), httpadapter.Services{
		Risk:          riskSvc,
		Snapshots:     snapshots,
		CropCycles:    cropSvc,
		Definitions:   definitions,
		Notifications: notifications,
	}, logger)

	var wg sync.WaitGroup

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start weather-update pipeline.
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(riskSvc), writer, logger, metrics, cfg.BatchSize)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka disabled; weather-update pipeline not started")
	}

	// SIGHUP drops cached crop definitions so a re-seeded catalog is picked up.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				definitions.Invalidate("")
				logger.Info("crop definition cache cleared")
			}
		}
	}()

	// Start scheduled sweep.
	if cfg.SchedulerEnabled {
		s := scheduler.New(cycles, riskSvc, clock, cfg.SchedulerInterval, cfg.SchedulerConcurrency, logger, metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				logger.Error("scheduler error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()

	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka alert writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

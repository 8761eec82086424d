// Command uvfeed runs the UV index ingestion service: it refreshes the store
// from the feed on a fixed cadence and serves the live view, the widget
// timeline, health and metrics over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/uv-feed-service/internal/adapter/arpansa"
	httpadapter "github.com/couchcryptid/uv-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/uv-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/uv-feed-service/internal/config"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/couchcryptid/uv-feed-service/internal/pipeline"
	"github.com/couchcryptid/uv-feed-service/internal/refresh"
	"github.com/couchcryptid/uv-feed-service/internal/storage"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	client := arpansa.NewClient(arpansa.Options{
		URL:         cfg.FeedURL,
		Timeout:     cfg.FeedTimeout,
		MaxBytes:    cfg.FeedMaxBytes,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger, metrics)

	opts := []pipeline.Option{pipeline.WithClock(clock)}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("kafka change feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka change feed disabled")
	}

	p := pipeline.New(client, store, logger, metrics, opts...)
	fg := refresh.NewForeground(p, refresh.ForegroundOptions{
		Interval: cfg.RefreshInterval,
		Timeout:  cfg.IngestTimeout,
		Clock:    clock,
	}, logger, metrics)
	timeline := refresh.NewTimeline(store, cfg.TimelineRefresh, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, fg, timeline, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Start foreground refresh.
	g.Go(func() error {
		if err := fg.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	// Shut everything down once a signal arrives or a component fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		fg.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		if writer != nil {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
		return nil
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
	"lotreel/internal/coordinator"
	"lotreel/internal/executors"
	"lotreel/internal/llm"
	"lotreel/internal/logging"
	"lotreel/internal/notifications"
	"lotreel/internal/regen"
	"lotreel/internal/review"
	"lotreel/internal/stage"
	"lotreel/internal/uploader"
	"lotreel/internal/webapi"
)

const shutdownGrace = 30 * time.Second

// run wires the daemon together and blocks until the context is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lockPath := filepath.Join(cfg.Paths.LogDir, "lotreeld.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another lotreeld instance holds %s", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	// The instance lock is held, so any job still marked active belongs to a
	// crashed run and is blocking its listing's exclusivity slot.
	recovered, err := store.RecoverInterruptedJobs(ctx)
	if err != nil {
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if recovered > 0 {
		logger.Warn("recovered jobs interrupted by a previous run",
			logging.Int("count", recovered))
	}

	notifier := notifications.NewService(cfg)
	coord := coordinator.New(cfg, store, buildExecutors(cfg, logger), notifier, logger)

	uploads, err := uploader.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("configure uploader: %w", err)
	}
	gate := review.NewGate(store, uploads, notifier, logger)
	ctrl := regen.NewController(store, coord, logger)

	api := webapi.New(cfg, store, coord, gate, ctrl, logger)
	if api == nil {
		return fmt.Errorf("api bind address is required")
	}
	if err := api.Start(ctx); err != nil {
		return err
	}
	defer api.Stop()

	logger.Info("lotreeld started",
		logging.String("database", store.Path()),
		logging.String("api", api.Addr()),
		logging.String("lock", lockPath))

	<-ctx.Done()
	logger.Info("lotreeld shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := coord.Shutdown(shutdownCtx); err != nil {
		logger.Warn("coordinator shutdown incomplete", logging.Error(err))
	}
	return nil
}

// buildExecutors assembles the full stage executor set from configuration.
func buildExecutors(cfg *config.Config, logger *slog.Logger) *stage.Set {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return stage.NewSet(
		executors.NewImageDownloader(cfg, logger),
		executors.NewImageProcessor(cfg, logger),
		executors.NewScriptGenerator(cfg, logger, client),
		executors.NewVoiceoverGenerator(cfg, logger),
		executors.NewQRGenerator(cfg, logger),
		executors.NewVideoComposer(cfg, logger),
	)
}

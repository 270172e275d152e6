package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/w2-reporter/internal/common"
	"github.com/joseph-ayodele/w2-reporter/internal/export"
	"github.com/joseph-ayodele/w2-reporter/internal/extract"
	"github.com/joseph-ayodele/w2-reporter/internal/ingest"
	"github.com/joseph-ayodele/w2-reporter/internal/pipeline"
	"github.com/joseph-ayodele/w2-reporter/internal/relay"
	"github.com/joseph-ayodele/w2-reporter/internal/repository"
	"github.com/joseph-ayodele/w2-reporter/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.OpenSubmissionStore(cfg.Audit.DBPath, logger)
	if err != nil {
		logger.Error("opening audit store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	spooler := ingest.NewSpooler(cfg.Upload, logger)
	extractor := extract.NewExtractor(logger)
	relayClient := relay.NewClient(cfg.Relay, logger)
	proc := pipeline.NewProcessor(spooler, extractor, relayClient, cfg.Upload.ExtractWorkers, store, logger)
	exportSvc := export.NewService(store, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewRouter(cfg, proc, store, exportSvc, logger),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/langtable/api"
	"github.com/use-agent/langtable/api/handler"
	"github.com/use-agent/langtable/cache"
	"github.com/use-agent/langtable/config"
	"github.com/use-agent/langtable/models"
	"github.com/use-agent/langtable/scraper"
	"github.com/use-agent/langtable/webhook"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve exposes runs over HTTP:

  POST /api/v1/runs      start a run (one at a time)
  GET  /api/v1/runs/:id  poll a run
  GET  /api/v1/health    liveness
  GET  /metrics          Prometheus metrics

Host, port, API keys and rate limits come from the config file or the
LANGTABLE_* environment.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	initLogger(cfg.Log, os.Stdout)
	slog.Info("starting langtable",
		"version", getVersion(),
		"port", cfg.Server.Port,
		"headless", cfg.Browser.Headless,
	)

	sink, closeSink, err := buildSink(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Stop()

	notifier := webhook.NewNotifier(nil)

	runs := handler.NewRuns(ctx, requestRunner(cfg, sink), cc, notifier, handler.RunDefaults{
		IndexURL:   cfg.Crawl.IndexURL,
		HrefPrefix: cfg.Crawl.HrefPrefix,
		MaxItems:   cfg.Crawl.MaxItems,
	})
	router := api.NewRouter(cfg, runs, time.Now(), getVersion())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// The run context is already canceled; the scraper writes what it has
	// and closes the browser.
	runs.Wait()
	notifier.Wait()

	slog.Info("langtable stopped")
	return nil
}

// requestRunner runs one Rod-backed crawl per request, writing to sink.
func requestRunner(cfg *config.Config, sink scraper.Sink) handler.RunFunc {
	return func(ctx context.Context, req models.RunRequest) (*models.RunReport, error) {
		return newScraper(requestConfig(cfg, req), sink).Run(ctx, req.IndexURL, req.HrefPrefix)
	}
}

// requestConfig returns a copy of cfg with the request's overrides applied.
func requestConfig(cfg *config.Config, req models.RunRequest) *config.Config {
	runCfg := *cfg
	if req.MaxItems > 0 {
		runCfg.Crawl.MaxItems = req.MaxItems
	}
	return &runCfg
}

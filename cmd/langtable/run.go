package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/use-agent/langtable/config"
	"github.com/use-agent/langtable/engine"
	"github.com/use-agent/langtable/models"
	"github.com/use-agent/langtable/output"
	"github.com/use-agent/langtable/scraper"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl the index page once and write the results",
		Long: `Run loads the index page, collects every detail link under the href
prefix and extracts one record per detail page.

Pages that fail to load after the configured number of attempts are
skipped. Interrupting the run (Ctrl+C) stops after the current page and
still writes the records collected so far.

Examples:
  langtable run
  langtable run --max-items 10 --stdout --output ""
  langtable run --sqlite --retry-delay 10s`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	def := config.Defaults()
	f := cmd.Flags()
	f.String("index-url", def.Crawl.IndexURL, "Index page listing the items")
	f.String("href-prefix", def.Crawl.HrefPrefix, "Path prefix of detail links")
	f.Int("max-attempts", def.Retry.MaxAttempts, "Navigation attempts per page")
	f.Duration("retry-delay", def.Retry.InterAttemptDelay, "Pause between failed attempts")
	f.Duration("nav-timeout", def.Retry.PrimaryTimeout, "Timeout for DOMContentLoaded")
	f.Duration("idle-timeout", def.Retry.IdleTimeout, "Timeout for network idle after DOMContentLoaded")
	f.Duration("item-delay", def.Crawl.ItemDelay, "Pause between detail pages")
	f.Int("max-items", 0, "Maximum detail pages to visit (0 = all)")
	f.StringP("output", "o", def.Output.JSONPath, "JSON output file (empty disables)")
	f.String("sqlite", "", "Also append the run to a SQLite database")
	f.Lookup("sqlite").NoOptDefVal = config.DefaultSQLitePath()
	f.Bool("stdout", false, "Also print the JSON array to stdout")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout may carry the JSON array, so logs go to stderr.
	initLogger(cfg.Log, cmd.ErrOrStderr())

	sink, closeSink, err := buildSink(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := newScraper(cfg, sink).Run(ctx, cfg.Crawl.IndexURL, cfg.Crawl.HrefPrefix)
	if err != nil {
		var fatal *models.FatalRunError
		if errors.As(err, &fatal) {
			slog.Error("run failed", "stage", fatal.Stage, "error", fatal.Err)
		}
		return err
	}

	slog.Info("run finished",
		"records", len(report.Records),
		"links", report.LinksFound,
		"failed", report.ItemsFailed,
		"partial", report.ItemsPartial,
		"canceled", report.Canceled,
		"duration", report.Duration().String(),
	)
	return nil
}

// applyRunFlags copies explicitly set flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error

	if f.Changed("index-url") {
		if cfg.Crawl.IndexURL, err = f.GetString("index-url"); err != nil {
			return err
		}
	}
	if f.Changed("href-prefix") {
		if cfg.Crawl.HrefPrefix, err = f.GetString("href-prefix"); err != nil {
			return err
		}
	}
	if f.Changed("max-attempts") {
		if cfg.Retry.MaxAttempts, err = f.GetInt("max-attempts"); err != nil {
			return err
		}
	}
	if f.Changed("retry-delay") {
		if cfg.Retry.InterAttemptDelay, err = f.GetDuration("retry-delay"); err != nil {
			return err
		}
	}
	if f.Changed("nav-timeout") {
		if cfg.Retry.PrimaryTimeout, err = f.GetDuration("nav-timeout"); err != nil {
			return err
		}
	}
	if f.Changed("idle-timeout") {
		if cfg.Retry.IdleTimeout, err = f.GetDuration("idle-timeout"); err != nil {
			return err
		}
	}
	if f.Changed("item-delay") {
		if cfg.Crawl.ItemDelay, err = f.GetDuration("item-delay"); err != nil {
			return err
		}
	}
	if f.Changed("max-items") {
		if cfg.Crawl.MaxItems, err = f.GetInt("max-items"); err != nil {
			return err
		}
	}
	if f.Changed("output") {
		if cfg.Output.JSONPath, err = f.GetString("output"); err != nil {
			return err
		}
	}
	if f.Changed("sqlite") {
		path, err := f.GetString("sqlite")
		if err != nil {
			return err
		}
		cfg.Output.SQLiteEnabled = true
		if path != "" {
			cfg.Output.SQLitePath = path
		}
	}
	if f.Changed("stdout") {
		if cfg.Output.Stdout, err = f.GetBool("stdout"); err != nil {
			return err
		}
	}
	return nil
}

// buildSink assembles the configured outputs. The returned func releases
// any open database and must always be called.
func buildSink(cfg *config.Config, stdout io.Writer) (output.Sink, func(), error) {
	var sinks output.MultiSink
	closeFn := func() {}

	if cfg.Output.JSONPath != "" {
		sinks = append(sinks, output.NewJSONFileSink(cfg.Output.JSONPath))
	}
	if cfg.Output.SQLiteEnabled {
		db, err := output.OpenSQLite(cfg.Output.SQLitePath)
		if err != nil {
			return nil, closeFn, models.NewScrapeError(models.ErrCodeSinkFailed, "failed to open sqlite output", err)
		}
		sinks = append(sinks, db)
		closeFn = func() {
			if err := db.Close(); err != nil {
				slog.Warn("failed to close sqlite output", "error", err)
			}
		}
	}
	if cfg.Output.Stdout {
		sinks = append(sinks, output.WriterSink{W: stdout})
	}
	return sinks, closeFn, nil
}

// newScraper wires a Rod-backed scraper for one run.
func newScraper(cfg *config.Config, sink scraper.Sink) *scraper.Scraper {
	var navOpts []scraper.NavigatorOption
	if rps := cfg.Crawl.RequestsPerSecond; rps > 0 {
		navOpts = append(navOpts, scraper.WithLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}

	return scraper.New(
		engine.Opener(cfg.Browser),
		scraper.SettingsFromConfig(cfg),
		scraper.WithSink(sink),
		scraper.WithNavigator(scraper.NewNavigator(navOpts...)),
	)
}


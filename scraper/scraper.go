package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/config"
	"github.com/use-agent/langtable/engine"
	"github.com/use-agent/langtable/metrics"
	"github.com/use-agent/langtable/models"
)

// Run states, logged at debug level as a run moves through them.
const (
	stateInit            = "INIT"
	stateNavigatingIndex = "NAVIGATING_INDEX"
	stateLinksCollected  = "LINKS_COLLECTED"
	stateNavigatingItem  = "NAVIGATING_ITEM"
	stateItemLoaded      = "ITEM_LOADED"
	stateExtracting      = "EXTRACTING"
	stateRecordAppended  = "RECORD_APPENDED"
	stateItemFailed      = "ITEM_FAILED"
	stateDone            = "DONE"
	stateIndexFailed     = "INDEX_FAILED"
)

// Sink receives the report of a finished run.
type Sink interface {
	Write(ctx context.Context, report *models.RunReport) error
}

// SessionOpener provides the browser session a run owns.
type SessionOpener func(ctx context.Context) (engine.Session, error)

// Settings are the per-run knobs of a Scraper.
type Settings struct {
	Policy models.RetryPolicy

	ScopeSelector string
	ContentWait   time.Duration
	MaxItems      int

	Selectors cleaner.DetailSelectors
	TableWait time.Duration

	// ItemDelay is the pause between consecutive detail pages.
	ItemDelay time.Duration
}

// SettingsFromConfig picks the crawl settings out of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Policy:        cfg.Retry,
		ScopeSelector: cfg.Crawl.ScopeSelector,
		ContentWait:   cfg.Crawl.ContentWaitTimeout,
		MaxItems:      cfg.Crawl.MaxItems,
		Selectors: cleaner.DetailSelectors{
			Title: cfg.Crawl.TitleSelector,
			Rows:  cfg.Crawl.RowSelector,
		},
		TableWait: cfg.Crawl.TableWaitTimeout,
		ItemDelay: cfg.Crawl.ItemDelay,
	}
}

// Scraper runs the index → detail crawl. A Scraper runs one crawl at a time.
type Scraper struct {
	open      SessionOpener
	settings  Settings
	nav       *Navigator
	extractor *Extractor
	sink      Sink
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithSink hands every finished report to sink.
func WithSink(sink Sink) Option {
	return func(s *Scraper) { s.sink = sink }
}

// WithNavigator replaces the default Navigator.
func WithNavigator(nav *Navigator) Option {
	return func(s *Scraper) { s.nav = nav }
}

// New creates a Scraper that opens a fresh session per run.
func New(open SessionOpener, settings Settings, opts ...Option) *Scraper {
	s := &Scraper{
		open:     open,
		settings: settings,
		nav:      NewNavigator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = NewExtractor(settings.Selectors, settings.TableWait)
	return s
}

// Run loads indexURL, collects links whose href starts with hrefPrefix and
// extracts one record per detail page that loads.
//
// A failure to load or read the index page is a *models.FatalRunError and
// nothing is written to the sink. Detail pages that fail to load are
// skipped. Canceling ctx stops the crawl between steps; the records gathered
// so far are returned with Canceled set and still written to the sink. The
// session is closed exactly once on every path.
func (s *Scraper) Run(ctx context.Context, indexURL, hrefPrefix string) (*models.RunReport, error) {
	report := &models.RunReport{
		IndexURL:   indexURL,
		HrefPrefix: hrefPrefix,
		Records:    []models.TranslationRecord{},
		StartedAt:  time.Now(),
	}
	slog.Debug("run state", "state", stateInit, "indexURL", indexURL)

	session, err := s.open(ctx)
	if err != nil {
		metrics.Runs.WithLabelValues(metrics.RunFailed).Inc()
		return nil, models.NewFatalRunError(models.StageSession, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.Warn("failed to close browser session", "error", cerr)
		}
	}()
	page := session.Page()

	slog.Debug("run state", "state", stateNavigatingIndex, "url", indexURL)
	if err := s.nav.Load(ctx, page, indexURL, s.settings.Policy); err != nil {
		slog.Debug("run state", "state", stateIndexFailed, "error", err)
		metrics.Runs.WithLabelValues(metrics.RunFailed).Inc()
		return nil, models.NewFatalRunError(models.StageIndex, err)
	}

	links, err := CollectLinks(ctx, page, LinkOptions{
		HrefPrefix:      hrefPrefix,
		ScopeSelector:   s.settings.ScopeSelector,
		ContentWait:     s.settings.ContentWait,
		MaxItems:        s.settings.MaxItems,
		FallbackBaseURL: indexURL,
	})
	if err != nil {
		slog.Debug("run state", "state", stateIndexFailed, "error", err)
		metrics.Runs.WithLabelValues(metrics.RunFailed).Inc()
		return nil, models.NewFatalRunError(models.StageCollect, err)
	}
	report.LinksFound = len(links)
	slog.Debug("run state", "state", stateLinksCollected, "count", len(links))
	slog.Info("links collected", "url", indexURL, "count", len(links))

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		s.visit(ctx, page, link, report)

		if err := sleepCtx(ctx, s.settings.ItemDelay); err != nil {
			break
		}
	}

	report.Canceled = ctx.Err() != nil
	report.FinishedAt = time.Now()
	slog.Debug("run state", "state", stateDone,
		"records", len(report.Records),
		"failed", report.ItemsFailed,
		"canceled", report.Canceled,
	)

	status := metrics.RunCompleted
	if report.Canceled {
		status = metrics.RunCanceled
	}
	metrics.Runs.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(report.Duration().Seconds())

	if s.sink != nil {
		if err := s.sink.Write(context.WithoutCancel(ctx), report); err != nil {
			return report, models.NewScrapeError(models.ErrCodeSinkFailed, "failed to write results", err)
		}
	}
	return report, nil
}

// visit loads one detail page and appends its record to report. Failures
// are counted, never returned.
func (s *Scraper) visit(ctx context.Context, page engine.Page, link string, report *models.RunReport) {
	slog.Debug("run state", "state", stateNavigatingItem, "url", link)
	if err := s.nav.Load(ctx, page, link, s.settings.Policy); err != nil {
		if ctx.Err() != nil {
			return
		}
		report.ItemsFailed++
		metrics.Items.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Debug("run state", "state", stateItemFailed, "url", link)
		slog.Warn("skipping item", "url", link, "error", err)
		return
	}
	slog.Debug("run state", "state", stateItemLoaded, "url", link)

	slog.Debug("run state", "state", stateExtracting, "url", link)
	rec, outcome := s.extractor.Extract(ctx, page, link)
	if outcome == models.ExtractPartial && ctx.Err() != nil {
		return
	}

	report.Records = append(report.Records, rec)
	if outcome == models.ExtractPartial {
		report.ItemsPartial++
		metrics.Items.WithLabelValues(metrics.OutcomePartial).Inc()
	} else {
		metrics.Items.WithLabelValues(metrics.OutcomeComplete).Inc()
	}
	slog.Debug("run state", "state", stateRecordAppended, "url", link)
	slog.Info("item extracted", "item", rec.Item, "url", link, "outcome", outcome)
	if outcome == models.ExtractComplete && !rec.HasTranslations() {
		slog.Warn("translation table has no supported languages", "item", rec.Item, "url", link)
	}
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

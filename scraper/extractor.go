package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/engine"
	"github.com/use-agent/langtable/models"
)

// Extractor turns a loaded detail page into a TranslationRecord.
type Extractor struct {
	selectors cleaner.DetailSelectors
	tableWait time.Duration
}

// NewExtractor creates an Extractor that waits up to tableWait for the
// translation rows to render.
func NewExtractor(selectors cleaner.DetailSelectors, tableWait time.Duration) *Extractor {
	return &Extractor{selectors: selectors, tableWait: tableWait}
}

// Extract never fails: a page whose table never renders, or whose DOM cannot
// be read, yields a partial record carrying only the item name.
//
// When the page has no title the item name is derived from link.
func (e *Extractor) Extract(ctx context.Context, page engine.Page, link string) (models.TranslationRecord, models.ExtractOutcome) {
	waitCtx, cancel := context.WithTimeout(ctx, e.tableWait)
	waitErr := page.WaitSelector(waitCtx, e.selectors.Rows)
	cancel()
	if waitErr != nil {
		slog.Info("translation table did not appear", "url", link, "error", waitErr)
	}

	rawHTML, err := page.HTML(ctx)
	if err != nil {
		slog.Warn("failed to read detail page", "url", link, "error", err)
		return models.TranslationRecord{Item: itemFromURL(link)}, models.ExtractPartial
	}

	rec, rowsFound := cleaner.ParseDetail(rawHTML, e.selectors)
	if rec.Item == "" {
		rec.Item = itemFromURL(link)
	}
	if !rowsFound {
		return rec, models.ExtractPartial
	}
	return rec, models.ExtractComplete
}

// itemFromURL turns ".../wiki/Jueyun_Chili" into "Jueyun Chili".
func itemFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	seg := path.Base(u.Path)
	if seg == "/" || seg == "." {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(seg, "_", " "))
}

package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/engine"
)

// LinkOptions controls link collection on the index page.
type LinkOptions struct {
	// HrefPrefix selects anchors by the start of their raw href.
	HrefPrefix string

	// ScopeSelector restricts collection to part of the page; "" means the
	// whole document.
	ScopeSelector string

	// ContentWait bounds the wait for ScopeSelector to appear. A timeout is
	// logged and collection proceeds with whatever has rendered.
	ContentWait time.Duration

	// MaxItems truncates the result (0 = unlimited).
	MaxItems int

	// FallbackBaseURL resolves relative hrefs when the page cannot report
	// its own location.
	FallbackBaseURL string
}

// CollectLinks returns the distinct absolute detail URLs on the loaded index
// page in first-seen order. No match is an empty slice, not an error; only a
// failed DOM snapshot is an error.
func CollectLinks(ctx context.Context, page engine.Page, opts LinkOptions) ([]string, error) {
	if opts.ScopeSelector != "" && opts.ContentWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, opts.ContentWait)
		err := page.WaitSelector(waitCtx, opts.ScopeSelector)
		cancel()
		if err != nil {
			slog.Warn("content scope did not appear, collecting anyway",
				"selector", opts.ScopeSelector,
				"error", err,
			)
		}
	}

	rawHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to extract index page HTML")
	}

	base := page.URL(ctx)
	if base == "" {
		base = opts.FallbackBaseURL
	}

	links := cleaner.CollectLinks(rawHTML, base, opts.ScopeSelector, opts.HrefPrefix)
	if opts.MaxItems > 0 && len(links) > opts.MaxItems {
		links = links[:opts.MaxItems]
	}
	return links, nil
}

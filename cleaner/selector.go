package cleaner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ValidateSelectors compiles every non-empty CSS selector and reports the
// first one cascadia rejects.
func ValidateSelectors(selectors ...string) error {
	for _, s := range selectors {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, err := cascadia.Parse(s); err != nil {
			return fmt.Errorf("invalid selector %q: %w", s, err)
		}
	}
	return nil
}

// parseDocument parses a rendered DOM snapshot.
func parseDocument(rawHTML string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
}

// findAll matches selector against sel. A selector cascadia cannot compile
// matches nothing, so a bad configuration degrades to empty results instead
// of a panic.
func findAll(sel *goquery.Selection, selector string) *goquery.Selection {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return sel.FindNodes()
	}
	return sel.FindMatcher(m)
}

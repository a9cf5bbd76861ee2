package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CollectLinks returns the distinct detail-page URLs found in rawHTML, in the
// order they first appear.
//
// Only anchors inside scopeSelector (the whole document when empty) whose raw
// href attribute starts with hrefPrefix are considered. Each href is resolved
// against pageURL; uniqueness is exact string equality on the resolved URL.
// Non-http(s) targets are skipped; a link back to pageURL itself is kept like
// any other. The result is never nil.
func CollectLinks(rawHTML, pageURL, scopeSelector, hrefPrefix string) []string {
	links := []string{}

	base, err := url.Parse(pageURL)
	if err != nil {
		return links
	}

	doc, err := parseDocument(rawHTML)
	if err != nil {
		return links
	}

	scope := doc.Selection
	if scopeSelector != "" {
		scope = findAll(doc.Selection, scopeSelector)
	}

	seen := make(map[string]struct{})
	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || !strings.HasPrefix(href, hrefPrefix) {
			return
		}

		// Resolve relative URLs against the base.
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()

		// Deduplicate.
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}
		links = append(links, absURL)
	})

	return links
}

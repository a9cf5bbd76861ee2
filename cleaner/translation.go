package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/langtable/models"
)

// Default selectors for fandom-style wiki detail pages.
const (
	DefaultTitleSelector = "h1.page-header__title"
	DefaultRowSelector   = "table.article-table tbody tr"
)

// DetailSelectors locates the parts of a detail page the parser reads.
type DetailSelectors struct {
	Title string
	Rows  string
}

// ParseDetail extracts a translation record from a rendered detail page.
// rowsFound is false when the translation table has no rows, in which case
// only Item is populated.
//
// For every row the language label comes from the first "td b"; rows without
// one, or without a second cell, are skipped. Later rows for the same
// language overwrite earlier ones.
func ParseDetail(rawHTML string, sel DetailSelectors) (rec models.TranslationRecord, rowsFound bool) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return rec, false
	}

	rec.Item = strings.TrimSpace(findAll(doc.Selection, sel.Title).First().Text())

	rows := findAll(doc.Selection, sel.Rows)
	if rows.Length() == 0 {
		return rec, false
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		label := row.Find("td b").First()
		if label.Length() == 0 {
			return
		}
		language := strings.TrimSpace(label.Text())

		cell := row.Find("td").Eq(1)
		if cell.Length() == 0 {
			return
		}

		if value, ok := translationFor(language, cell); ok {
			rec.Set(language, value)
		}
	})

	return rec, true
}

// translationFor applies the per-language extraction rule to the
// translation cell.
func translationFor(language string, cell *goquery.Selection) (string, bool) {
	switch language {
	case models.LanguageVietnamese:
		if span := cell.Find(`span[lang="vi"]`).First(); span.Length() > 0 {
			return innerText(span), true
		}
		return Normalize(innerText(cell)), true
	case models.LanguageJapanese:
		if span := cell.Find(`span[lang="ja"]`).First(); span.Length() > 0 {
			return innerText(span), true
		}
		return innerText(cell), true
	case models.LanguageEnglish:
		return innerText(cell), true
	default:
		return "", false
	}
}

// blockElements break lines in rendered text.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "ul": {}, "ol": {}, "tr": {}, "table": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// innerText approximates the browser's innerText for a selection: text nodes
// in document order, <br> and block boundaries as newlines, script and style
// content dropped, result trimmed. goquery's Text() would glue "a<br>b" into
// "ab".
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}

		_, block := blockElements[n.Data]
		if block && n.Type == html.ElementNode {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block && n.Type == html.ElementNode {
			b.WriteByte('\n')
		}
	}

	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	return strings.TrimSpace(b.String())
}

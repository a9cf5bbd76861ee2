package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/engine"
	"github.com/use-agent/langtable/models"
)

var errConnReset = errors.New("net::ERR_CONNECTION_RESET")

// fakeSite is what fakePage serves for one URL.
type fakeSite struct {
	html string

	// failFirst makes the first n navigations fail; -1 fails forever.
	failFirst int

	// idleErr is returned by WaitIdle after navigating here.
	idleErr error
}

// fakePage implements engine.Page from canned HTML. Selector waits resolve
// instantly against the current document.
type fakePage struct {
	mu       sync.Mutex
	sites    map[string]*fakeSite
	current  string
	navCalls map[string]int
	order    []string
	resets   int

	htmlErr    error
	hideURL    bool
	onNavigate func(url string)
}

func newFakePage(sites map[string]*fakeSite) *fakePage {
	return &fakePage{sites: sites, navCalls: make(map[string]int)}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navCalls[url]++
	p.order = append(p.order, url)
	n := p.navCalls[url]
	site, ok := p.sites[url]
	hook := p.onNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	if site.failFirst < 0 || n <= site.failFirst {
		return errConnReset
	}

	p.mu.Lock()
	p.current = url
	p.mu.Unlock()
	return nil
}

func (p *fakePage) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if site := p.site(); site != nil {
		return site.idleErr
	}
	return nil
}

func (p *fakePage) WaitSelector(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	site := p.site()
	if site == nil {
		return context.DeadlineExceeded
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(site.html))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return context.DeadlineExceeded
	}
	return nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.htmlErr != nil {
		return "", p.htmlErr
	}
	if site := p.site(); site != nil {
		return site.html, nil
	}
	return "<html></html>", nil
}

func (p *fakePage) URL(ctx context.Context) string {
	if p.hideURL {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePage) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	p.current = "about:blank"
	return nil
}

func (p *fakePage) site() *fakeSite {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sites[p.current]
}

func (p *fakePage) calls(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navCalls[url]
}

// fakeSession counts Close calls.
type fakeSession struct {
	page   *fakePage
	closes int
}

func (s *fakeSession) Page() engine.Page { return s.page }

func (s *fakeSession) Close() error {
	s.closes++
	return nil
}

// fakeTimer fires immediately and records every requested pause.
type fakeTimer struct {
	starts []time.Duration
	c      chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.starts = append(t.starts, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

// recordingSink keeps every report it is given.
type recordingSink struct {
	reports []*models.RunReport
	err     error
}

func (s *recordingSink) Write(_ context.Context, report *models.RunReport) error {
	s.reports = append(s.reports, report)
	return s.err
}

// Page builders.

const testIndexURL = "https://wiki.example.com/wiki/Local_Specialty"

func indexPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="mw-parser-output">`)
	for _, h := range hrefs {
		b.WriteString(`<a href="` + h + `">link</a>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func itemPage(title, english, japanese, vietnamese string) string {
	return `<html><body><h1 class="page-header__title">` + title + `</h1>
<table class="article-table"><tbody>
<tr><td><b>English</b></td><td>` + english + `</td></tr>
<tr><td><b>Japanese</b></td><td><span lang="ja">` + japanese + `</span></td></tr>
<tr><td><b>Vietnamese</b></td><td><span lang="vi">` + vietnamese + `</span></td></tr>
</tbody></table></body></html>`
}

func testPolicy() models.RetryPolicy {
	return models.RetryPolicy{
		MaxAttempts:       3,
		InterAttemptDelay: 5 * time.Second,
		PrimaryTimeout:    time.Second,
		IdleTimeout:       time.Second,
	}
}

func testSettings() Settings {
	return Settings{
		Policy:        testPolicy(),
		ScopeSelector: ".mw-parser-output",
		ContentWait:   time.Second,
		Selectors: cleaner.DetailSelectors{
			Title: cleaner.DefaultTitleSelector,
			Rows:  cleaner.DefaultRowSelector,
		},
		TableWait: time.Second,
	}
}

package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/langtable/engine"
	"github.com/use-agent/langtable/models"
)

const (
	chiliURL   = "https://wiki.example.com/wiki/Jueyun_Chili"
	qingxinURL = "https://wiki.example.com/wiki/Qingxin"
)

type harness struct {
	page    *fakePage
	session *fakeSession
	sink    *recordingSink
	timer   *fakeTimer
	scraper *Scraper
	opens   int
}

func newHarness(sites map[string]*fakeSite) *harness {
	h := &harness{
		page:  newFakePage(sites),
		sink:  &recordingSink{},
		timer: &fakeTimer{},
	}
	h.session = &fakeSession{page: h.page}
	open := func(context.Context) (engine.Session, error) {
		h.opens++
		return h.session, nil
	}
	nav := NewNavigator(WithTimer(func() backoff.Timer { return h.timer }))
	h.scraper = New(open, testSettings(), WithSink(h.sink), WithNavigator(nav))
	return h
}

func twoItemSite() map[string]*fakeSite {
	return map[string]*fakeSite{
		testIndexURL: {html: indexPage("/wiki/Jueyun_Chili", "/wiki/Qingxin")},
		chiliURL:     {html: itemPage("Jueyun Chili", "Jueyun Chili", "絶雲の唐辛子", "Ớt Tuyệt Vân")},
		qingxinURL:   {html: itemPage("Qingxin", "Qingxin", "清心", "Thanh Tâm")},
	}
}

func TestRun_TwoGoodLinks(t *testing.T) {
	h := newHarness(twoItemSite())

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.NoError(t, err)

	require.Len(t, report.Records, 2)
	assert.Equal(t, "Jueyun Chili", report.Records[0].Item)
	assert.Equal(t, "Qingxin", report.Records[1].Item)
	assert.Equal(t, "Thanh Tâm", report.Records[1].Vietnamese)
	assert.Equal(t, 2, report.LinksFound)
	assert.Zero(t, report.ItemsFailed)
	assert.False(t, report.Canceled)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, h.sink.reports, 1)
	assert.Same(t, report, h.sink.reports[0])
	assert.Equal(t, 1, h.session.closes)
	assert.Equal(t, []string{testIndexURL, chiliURL, qingxinURL}, h.page.order)
}

func TestRun_PermanentlyFailingItemIsSkipped(t *testing.T) {
	sites := twoItemSite()
	sites[chiliURL].failFirst = -1
	h := newHarness(sites)

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, "Qingxin", report.Records[0].Item)
	assert.Equal(t, 1, report.ItemsFailed)
	assert.Equal(t, testPolicy().MaxAttempts, h.page.calls(chiliURL))
	assert.Len(t, h.sink.reports, 1)
	assert.Equal(t, 1, h.session.closes)
}

func TestRun_TitleWithoutTable(t *testing.T) {
	h := newHarness(map[string]*fakeSite{
		testIndexURL: {html: indexPage("/wiki/Jueyun_Chili")},
		chiliURL:     {html: `<html><body><h1 class="page-header__title">Jueyun Chili</h1></body></html>`},
	})

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, models.TranslationRecord{Item: "Jueyun Chili"}, report.Records[0])
	assert.Equal(t, 1, report.ItemsPartial)
}

func TestRun_UnreachableIndex(t *testing.T) {
	h := newHarness(map[string]*fakeSite{testIndexURL: {failFirst: -1}})

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.Error(t, err)
	assert.Nil(t, report)

	var fatal *models.FatalRunError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, models.StageIndex, fatal.Stage)
	assert.Equal(t, testPolicy().MaxAttempts, fatal.Attempts)

	var navErr *models.NavigationError
	assert.ErrorAs(t, err, &navErr)

	assert.Empty(t, h.sink.reports, "sink must not be called")
	assert.Equal(t, 1, h.session.closes)
}

func TestRun_IndexSnapshotFailure(t *testing.T) {
	h := newHarness(twoItemSite())
	h.page.htmlErr = errors.New("target closed")

	_, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")

	var fatal *models.FatalRunError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, models.StageCollect, fatal.Stage)
	assert.Empty(t, h.sink.reports)
	assert.Equal(t, 1, h.session.closes)
}

func TestRun_SessionFailure(t *testing.T) {
	sink := &recordingSink{}
	open := func(context.Context) (engine.Session, error) {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", errors.New("no chrome"))
	}

	_, err := New(open, testSettings(), WithSink(sink)).Run(context.Background(), testIndexURL, "/wiki/")

	var fatal *models.FatalRunError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, models.StageSession, fatal.Stage)

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeBrowserCrash, se.Code)
	assert.Empty(t, sink.reports)
}

func TestRun_NoLinks(t *testing.T) {
	h := newHarness(map[string]*fakeSite{testIndexURL: {html: indexPage("/f/forum")}})

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.NoError(t, err)
	assert.NotNil(t, report.Records)
	assert.Empty(t, report.Records)
	assert.Len(t, h.sink.reports, 1)
}

func TestRun_CancelKeepsPartialResult(t *testing.T) {
	h := newHarness(twoItemSite())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.page.onNavigate = func(url string) {
		if url == qingxinURL {
			cancel()
		}
	}

	report, err := h.scraper.Run(ctx, testIndexURL, "/wiki/")
	require.NoError(t, err)

	assert.True(t, report.Canceled)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "Jueyun Chili", report.Records[0].Item)
	assert.Zero(t, report.ItemsFailed, "canceled navigation is not a failed item")
	assert.Len(t, h.sink.reports, 1)
	assert.Equal(t, 1, h.session.closes)
}

func TestRun_SinkFailure(t *testing.T) {
	h := newHarness(twoItemSite())
	h.sink.err = errors.New("disk full")

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.Records, 2)

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeSinkFailed, se.Code)
}

func TestRun_MaxItems(t *testing.T) {
	h := newHarness(twoItemSite())
	settings := testSettings()
	settings.MaxItems = 1
	h.scraper.settings = settings

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.NoError(t, err)
	assert.Equal(t, 1, report.LinksFound)
	assert.Len(t, report.Records, 1)
	assert.Zero(t, h.page.calls(qingxinURL))
}

func TestRun_PausesAfterEveryItem(t *testing.T) {
	const delay = 20 * time.Millisecond
	h := newHarness(twoItemSite())
	settings := testSettings()
	settings.ItemDelay = delay
	h.scraper.settings = settings

	report, err := h.scraper.Run(context.Background(), testIndexURL, "/wiki/")
	require.NoError(t, err)
	require.Len(t, report.Records, 2)
	assert.GreaterOrEqual(t, report.Duration(), 2*delay, "the last item is followed by a pause too")
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, 0), context.Canceled)
	assert.ErrorIs(t, sleepCtx(ctx, 1<<40), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), 1))
}

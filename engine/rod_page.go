package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

const (
	// requestIdleWindow is how long the network must stay quiet.
	requestIdleWindow = 500 * time.Millisecond

	// DOM stability fallback used while a hijack router owns the Fetch domain.
	domStableWindow = 300 * time.Millisecond
	domStableDiff   = 0.1
)

// rodPage adapts a *rod.Page to Page.
type rodPage struct {
	page *rod.Page

	// hijacked is set when a HijackRouter is mounted. WaitRequestIdle uses
	// the Fetch domain which conflicts with HijackRequests on Chromium 145+,
	// so idle detection falls back to WaitDOMStable.
	hijacked bool

	mu         sync.Mutex
	idleWait   func()
	idleCancel context.CancelFunc
}

func newRodPage(page *rod.Page, hijacked bool) *rodPage {
	return &rodPage{page: page, hijacked: hijacked}
}

// Navigate registers the DOMContentLoaded and request-idle listeners before
// navigating so no early request is missed, then waits for
// DOMContentLoaded only. The idle listener is consumed by WaitIdle.
func (r *rodPage) Navigate(ctx context.Context, url string) error {
	r.cancelIdle()

	p := r.page.Context(ctx)
	waitDCL := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)

	if !r.hijacked {
		// The idle waiter outlives this call, so it gets its own context.
		idleCtx, cancel := context.WithCancel(context.Background())
		wait := r.page.Context(idleCtx).WaitRequestIdle(requestIdleWindow, nil, nil, nil)
		r.mu.Lock()
		r.idleWait, r.idleCancel = wait, cancel
		r.mu.Unlock()
	}

	if err := p.Navigate(url); err != nil {
		r.cancelIdle()
		return err
	}

	waitDCL()
	if err := ctx.Err(); err != nil {
		r.cancelIdle()
		return err
	}
	return nil
}

// WaitIdle waits for the idle listener armed by the last Navigate, or for
// DOM stability when none is armed.
func (r *rodPage) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	wait, cancel := r.idleWait, r.idleCancel
	r.idleWait, r.idleCancel = nil, nil
	r.mu.Unlock()

	if wait == nil {
		return r.page.Context(ctx).WaitDOMStable(domStableWindow, domStableDiff)
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (r *rodPage) WaitSelector(ctx context.Context, selector string) error {
	_, err := r.page.Context(ctx).Element(selector)
	return err
}

func (r *rodPage) HTML(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *rodPage) URL(ctx context.Context) string {
	return evalStringOrEmpty(r.page.Context(ctx), `() => window.location.href`)
}

// Reset drops any pending idle wait and parks the page on about:blank.
func (r *rodPage) Reset(ctx context.Context) error {
	r.cancelIdle()
	return r.page.Context(ctx).Navigate("about:blank")
}

func (r *rodPage) cancelIdle() {
	r.mu.Lock()
	cancel := r.idleCancel
	r.idleWait, r.idleCancel = nil, nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

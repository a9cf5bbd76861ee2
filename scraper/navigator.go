package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/use-agent/langtable/engine"
	"github.com/use-agent/langtable/metrics"
	"github.com/use-agent/langtable/models"
)

// resetTimeout bounds the about:blank navigation after a failed attempt.
const resetTimeout = 10 * time.Second

// Navigator loads URLs into a page with bounded retries.
type Navigator struct {
	limiter  *rate.Limiter
	newTimer func() backoff.Timer
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithLimiter makes every attempt wait on l first. nil disables limiting.
func WithLimiter(l *rate.Limiter) NavigatorOption {
	return func(n *Navigator) { n.limiter = l }
}

// WithTimer replaces the timer used for inter-attempt pauses.
func WithTimer(newTimer func() backoff.Timer) NavigatorOption {
	return func(n *Navigator) { n.newTimer = newTimer }
}

// NewNavigator creates a Navigator.
func NewNavigator(opts ...NavigatorOption) *Navigator {
	n := &Navigator{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Load navigates page to url and waits for it to settle, making up to
// policy.MaxAttempts attempts with policy.InterAttemptDelay between them.
//
// An attempt succeeds when DOMContentLoaded fires within
// policy.PrimaryTimeout and the network then goes idle within
// policy.IdleTimeout. Each failed attempt is logged and the page is reset.
// When every attempt fails, or ctx ends, Load returns a
// *models.NavigationError wrapping the last cause.
func (n *Navigator) Load(ctx context.Context, page engine.Page, url string, policy models.RetryPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	attempts := 0
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if n.limiter != nil {
			if err := n.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		attempts++
		err := attempt(ctx, page, url, policy)
		if err == nil {
			metrics.NavigationAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
			return nil
		}

		metrics.NavigationAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		slog.Warn("navigation attempt failed",
			"url", url,
			"attempt", attempts,
			"maxAttempts", policy.MaxAttempts,
			"error", err,
		)
		resetPage(ctx, page)

		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(policy.InterAttemptDelay),
			uint64(policy.MaxAttempts-1),
		),
		ctx,
	)

	var timer backoff.Timer
	if n.newTimer != nil {
		timer = n.newTimer()
	}

	if err := backoff.RetryNotifyWithTimer(operation, b, nil, timer); err != nil {
		return &models.NavigationError{URL: url, Attempts: attempts, Err: err}
	}
	return nil
}

// attempt is a single navigation: DOMContentLoaded, then network idle.
func attempt(ctx context.Context, page engine.Page, url string, policy models.RetryPolicy) error {
	navCtx, cancel := context.WithTimeout(ctx, policy.PrimaryTimeout)
	err := page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}

	idleCtx, cancel := context.WithTimeout(ctx, policy.IdleTimeout)
	defer cancel()
	if err := page.WaitIdle(idleCtx); err != nil {
		return categorizeError(err, "network did not go idle")
	}
	return nil
}

// resetPage parks the page on about:blank. It runs even when ctx is already
// canceled so the page stays reusable.
func resetPage(ctx context.Context, page engine.Page) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()
	if err := page.Reset(rctx); err != nil {
		slog.Debug("cleanup: failed to navigate to about:blank", "error", err)
	}
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

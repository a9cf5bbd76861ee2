package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/langtable/config"
	"github.com/use-agent/langtable/models"
)

// RodSession is a launched Chromium with a single tab.
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage
	router   *rod.HijackRouter

	closeOnce sync.Once
	closeErr  error
}

// Launch starts a browser configured from cfg and opens the page a run
// will reuse. Any failure is an ErrCodeBrowserCrash ScrapeError and leaves
// no process behind.
func Launch(cfg config.BrowserConfig) (*RodSession, error) {
	l := newLauncher(cfg)

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	s := &RodSession{launcher: l, browser: browser}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	preparePage(page, cfg)

	s.router = mountHijack(page, cfg.BlockedResourceTypes, cfg.BlockAds)
	s.page = newRodPage(page, s.router != nil)
	return s, nil
}

// newLauncher applies the anti-automation flags every session uses.
func newLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// preparePage installs everything that must be in place before the first
// navigation. Each step is best effort.
func preparePage(page *rod.Page, cfg config.BrowserConfig) {
	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if cfg.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		})
		if err != nil {
			slog.Warn("failed to set user agent", "error", err)
		}
	}

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			slog.Warn("failed to set viewport", "error", err)
		}
	}

	if len(cfg.ExtraHeaders) > 0 {
		err := proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(cfg.ExtraHeaders)}.Call(page)
		if err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}
}

// Page returns the session's only page.
func (s *RodSession) Page() Page {
	return s.page
}

// Close stops the hijack router, closes the tab and the browser, and
// removes the launcher's profile directory. Later calls return the first
// call's result.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		slog.Debug("closing browser session")
		var errs []error
		if s.page != nil {
			s.page.cancelIdle()
		}
		if s.router != nil {
			errs = append(errs, s.router.Stop())
		}
		if s.page != nil {
			errs = append(errs, s.page.page.Close())
		}
		errs = append(errs, s.browser.Close())
		s.launcher.Cleanup()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Opener returns a function that launches a fresh session on every call.
func Opener(cfg config.BrowserConfig) func(context.Context) (Session, error) {
	return func(context.Context) (Session, error) {
		s, err := Launch(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

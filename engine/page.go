package engine

import "context"

// Page is a single loaded rendering session. It is owned by one caller at a
// time and reused sequentially across URLs.
//
// Every blocking method is bounded by its ctx; implementations must return
// promptly once ctx is done.
type Page interface {
	// Navigate starts loading url and returns once DOMContentLoaded fired.
	Navigate(ctx context.Context, url string) error

	// WaitIdle blocks until network activity for the last navigation has
	// settled.
	WaitIdle(ctx context.Context) error

	// WaitSelector blocks until at least one element matches selector.
	WaitSelector(ctx context.Context, selector string) error

	// HTML returns a snapshot of the rendered DOM.
	HTML(ctx context.Context) (string, error)

	// URL returns the current location, or "" if it cannot be read.
	URL(ctx context.Context) string

	// Reset navigates to about:blank so the page can be reused after a
	// failed load.
	Reset(ctx context.Context) error
}

// Session owns a browser and the one Page a run uses.
type Session interface {
	Page() Page

	// Close releases the page and the browser. It is safe to call more
	// than once.
	Close() error
}

package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrPageGone reports that the page or its browsing context was destroyed
// while an operation was in flight, typically because the site performed a
// full reload or the renderer died.
var ErrPageGone = errors.New("page context destroyed")

// Page is the driver surface the flows operate against. The production
// implementation wraps a rod page; tests substitute fakes.
type Page interface {
	// Navigate loads the URL and returns once navigation is committed.
	Navigate(url string) error
	// WaitLoad blocks until the page load event fires.
	WaitLoad() error
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(selector string, timeout time.Duration) error
	// WaitGone blocks until no visible element matches the selector.
	WaitGone(selector string, timeout time.Duration) error
	// Has reports whether the selector matches any element.
	Has(selector string) (bool, error)
	// Visible reports whether the first match is currently displayed.
	Visible(selector string) (bool, error)
	// Click clicks the first element matching the selector.
	Click(selector string) error
	// ClickDisplayed clicks the first currently-displayed match, skipping
	// hidden duplicates of the same control.
	ClickDisplayed(selector string) error
	// Fill clears the input and types the value.
	Fill(selector, value string) error
	// SelectOption selects the option with the given visible label.
	SelectOption(selector, label string) error
	// Text returns the trimmed text content of the first match.
	Text(selector string) (string, error)
	// HTML returns the full rendered document markup.
	HTML() (string, error)
	// Eval runs the JavaScript expression in the page and returns the
	// result rendered as a string (JSON text for non-string values).
	Eval(js string) (string, error)
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot() ([]byte, error)
	// URL returns the page's current location.
	URL() string
}

// IsPageGone classifies an operation error as "the page no longer exists"
// rather than an ordinary failure. Driver errors vary by backend, so the
// check is by message as well as by sentinel.
func IsPageGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPageGone) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"Cannot find context",
		"cannot find context",
		"target closed",
		"session closed",
		"Session closed",
		"page has been closed",
		"Inspected target navigated or closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

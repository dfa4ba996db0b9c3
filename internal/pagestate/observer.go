// Package pagestate watches a third-party page for error overlays and
// resolves the ambiguous mix of success/error/redirect signals those pages
// emit after a form submission.
package pagestate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coverifica/consultas-co-api/internal/browser"
)

// ObserverConfig names the page elements the observer watches.
type ObserverConfig struct {
	// OverlaySelector matches the blocking error modal.
	OverlaySelector string
	// TitleSelector and MessageSelector locate the error text inside the
	// overlay.
	TitleSelector   string
	MessageSelector string
	// StorageKey is the durable-storage key mirroring the last error so it
	// survives a full page reload.
	StorageKey string
}

// DefaultStorageKey is used when ObserverConfig.StorageKey is empty.
const DefaultStorageKey = "pagewatch:lastError"

// Observer installs a script into the rendered page that records error
// overlays and suppresses page-initiated navigation while an overlay is
// visible. The page owns the state; this type only reads snapshots.
type Observer struct {
	page   browser.Page
	cfg    ObserverConfig
	logger zerolog.Logger
}

// NewObserver builds an observer for one page.
func NewObserver(page browser.Page, cfg ObserverConfig, logger zerolog.Logger) *Observer {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	return &Observer{page: page, cfg: cfg, logger: logger}
}

// Install injects the watcher script. Installing twice is a no-op: the
// script leaves a marker in the page's global scope and bails out when it
// is already present. Returns whether this call performed the install.
func (o *Observer) Install() (bool, error) {
	result, err := o.page.Eval(o.installScript())
	if err != nil {
		return false, fmt.Errorf("observer install failed: %w", err)
	}
	switch result {
	case "installed":
		o.logger.Debug().Msg("page-state observer installed")
		return true, nil
	case "already-installed":
		return false, nil
	default:
		return false, fmt.Errorf("observer install returned unexpected result %q", result)
	}
}

// ConsumeStoredError reads and clears the durable-storage mirror. The
// mirror outlives a full page reload, so it is always consulted first.
func (o *Observer) ConsumeStoredError() (string, error) {
	return o.page.Eval(fmt.Sprintf(`() => {
		const v = sessionStorage.getItem(%q);
		if (v !== null) { sessionStorage.removeItem(%q); }
		return v || '';
	}`, o.cfg.StorageKey, o.cfg.StorageKey))
}

// LiveError returns the observer's in-memory error field, empty when no
// overlay has been seen.
func (o *Observer) LiveError() (string, error) {
	return o.page.Eval(`() => (window.__pageWatch && window.__pageWatch.state.lastError) || ''`)
}

// BlockedCount returns how many page-initiated navigations the observer
// has suppressed.
func (o *Observer) BlockedCount() (int, error) {
	raw, err := o.page.Eval(`() => String((window.__pageWatch && window.__pageWatch.state.blockedTransitions.length) || 0)`)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("unexpected blocked-transitions count %q", raw)
	}
	return n, nil
}

// installScript renders the page-side watcher. Visibility policy: the
// overlay counts as visible when its computed display is not "none", it
// does not carry a hiding class, and it is not marked aria-hidden. The
// site uses all three mechanisms inconsistently.
func (o *Observer) installScript() string {
	return fmt.Sprintf(`() => {
	if (window.__pageWatch) { return 'already-installed'; }

	const OVERLAY = %q;
	const TITLE = %q;
	const MESSAGE = %q;
	const STORAGE_KEY = %q;

	const state = {
		lastError: null,
		blockedTransitions: [],
	};

	const overlayVisible = () => {
		const el = document.querySelector(OVERLAY);
		if (!el) { return false; }
		if (el.getAttribute('aria-hidden') === 'true') { return false; }
		if (el.classList.contains('hide') || el.classList.contains('hidden')) { return false; }
		return window.getComputedStyle(el).display !== 'none';
	};

	const captureError = () => {
		const title = document.querySelector(TITLE);
		const message = document.querySelector(MESSAGE);
		const parts = [];
		if (title && title.textContent.trim()) { parts.push(title.textContent.trim()); }
		if (message && message.textContent.trim()) { parts.push(message.textContent.trim()); }
		const text = parts.join(': ');
		if (text) {
			state.lastError = text;
			try { sessionStorage.setItem(STORAGE_KEY, text); } catch (e) {}
		}
	};

	const check = () => {
		if (overlayVisible()) { captureError(); }
	};

	new MutationObserver(check).observe(document.documentElement, {
		childList: true,
		subtree: true,
		attributes: true,
		attributeFilter: ['style', 'class', 'aria-hidden'],
	});

	// The site sometimes pops the blocking modal and fires a redirect in
	// the same tick. Suppress page-initiated navigation while the overlay
	// is up so the error text is not lost to the redirect.
	const block = (action, args) => {
		state.blockedTransitions.push({
			action: action,
			timestamp: Date.now(),
			arguments: Array.prototype.slice.call(args).map(String),
		});
	};
	try {
		const loc = window.location;
		const origAssign = loc.assign.bind(loc);
		const origReplace = loc.replace.bind(loc);
		const origReload = loc.reload.bind(loc);
		window.location.assign = function () {
			if (overlayVisible()) { captureError(); block('assign', arguments); return; }
			return origAssign.apply(null, arguments);
		};
		window.location.replace = function () {
			if (overlayVisible()) { captureError(); block('replace', arguments); return; }
			return origReplace.apply(null, arguments);
		};
		window.location.reload = function () {
			if (overlayVisible()) { captureError(); block('reload', arguments); return; }
			return origReload.apply(null, arguments);
		};
	} catch (e) {}

	window.__pageWatch = { state: state, check: check };
	check();
	return 'installed';
}`, o.cfg.OverlaySelector, o.cfg.TitleSelector, o.cfg.MessageSelector, o.cfg.StorageKey)
}

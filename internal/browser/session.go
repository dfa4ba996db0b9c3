package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/proxy"
)

// Session is one browser acquisition: launcher, browser connection and a
// single stealth page. It lives for exactly one flow invocation.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   zerolog.Logger

	// Page is the driver-agnostic view handed to the flows.
	Page Page
}

// Options control a single session acquisition.
type Options struct {
	Headless bool
	Proxy    *proxy.Credential
}

// Acquire launches a browser, connects, and opens one stealth page with
// the configured viewport. On any failure the partially created resources
// are released before returning.
func Acquire(cfg config.BrowserConfig, opts Options, logger zerolog.Logger) (*Session, error) {
	s := &Session{logger: logger}

	l := launcher.New().
		Headless(opts.Headless).
		Leakless(false).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-extensions").
		Set("user-agent", cfg.UserAgent)
	if opts.Proxy != nil {
		l = l.Proxy(opts.Proxy.Server)
	}
	s.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Timeout(cfg.LaunchTimeout)
	if err := b.Connect(); err != nil {
		s.Release()
		return nil, fmt.Errorf("browser connect failed: %w", err)
	}
	// The launch timeout covers only the connect handshake. It must be
	// popped here: a timeout on the browser is a wall-clock deadline over
	// every chained operation, and the flows poll far longer than that.
	s.browser = b.CancelTimeout()

	if opts.Proxy != nil && opts.Proxy.Username != "" {
		go func() {
			_ = s.browser.HandleAuth(opts.Proxy.Username, opts.Proxy.Password)()
		}()
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("page creation failed: %w", err)
	}
	s.page = page

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("viewport setup failed: %w", err)
	}

	s.Page = &rodPage{page: page, navTimeout: cfg.PageTimeout}
	logger.Debug().Bool("headless", opts.Headless).Msg("browser session acquired")
	return s, nil
}

// Release closes whatever was created, in page/browser/launcher order.
// Each step is guarded independently so one failure never blocks the
// others, and failures are logged as warnings only.
func (s *Session) Release() {
	if s == nil {
		return
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("page close failed")
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("browser close failed")
		}
		s.browser = nil
	}
	if s.launcher != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Warn().Interface("panic", r).Msg("launcher cleanup failed")
				}
			}()
			s.launcher.Cleanup()
		}()
		s.launcher = nil
	}
}

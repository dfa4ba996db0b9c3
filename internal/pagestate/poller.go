package pagestate

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coverifica/consultas-co-api/internal/browser"
	"github.com/coverifica/consultas-co-api/internal/models"
)

// SignalKind tags an OutcomeSignal.
type SignalKind int

const (
	// SignalPending means no terminal signal yet; keep polling.
	SignalPending SignalKind = iota
	// SignalSuccess carries the success-message text.
	SignalSuccess
	// SignalError carries the most specific error text available.
	SignalError
	// SignalTimeout means the deadline elapsed with no resolution.
	SignalTimeout
)

// OutcomeSignal is the result of evaluating one poll tick.
type OutcomeSignal struct {
	Kind    SignalKind
	Message string
}

// errorSource is the observer surface the poller needs. Split out so the
// priority order can be tested with injected signals.
type errorSource interface {
	ConsumeStoredError() (string, error)
	LiveError() (string, error)
	BlockedCount() (int, error)
}

// PollerConfig names the page elements sampled each tick.
type PollerConfig struct {
	// SuccessSelector matches the element whose text confirms the flow
	// completed.
	SuccessSelector string
	// ToastSelector matches the generic error/toast element.
	ToastSelector string
	// InitialStepSelector matches an element only present on the flow's
	// starting screen. Seeing it again after submission means the site
	// silently bounced the request.
	InitialStepSelector string
	// Interval between samples. Defaults to 100ms.
	Interval time.Duration
}

// Poller samples the page until one of the outcome signals resolves or the
// deadline elapses. Signals are evaluated in a fixed priority order every
// tick, so an error present in the same tick as a success always wins.
type Poller struct {
	page   browser.Page
	source errorSource
	cfg    PollerConfig
	logger zerolog.Logger

	lastKnown   string
	blockedSeen int
}

// NewPoller builds a poller over one page and its installed observer.
func NewPoller(page browser.Page, observer *Observer, cfg PollerConfig, logger zerolog.Logger) *Poller {
	return newPoller(page, observer, cfg, logger)
}

func newPoller(page browser.Page, source errorSource, cfg PollerConfig, logger zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	return &Poller{page: page, source: source, cfg: cfg, logger: logger}
}

// Await polls until the flow resolves. Returns the success message, or a
// PageStateError carrying the most specific failure text captured.
func (p *Poller) Await(ctx context.Context, deadline time.Duration) (string, error) {
	start := time.Now()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		signal := p.tick()
		switch signal.Kind {
		case SignalSuccess:
			return signal.Message, nil
		case SignalError:
			return "", &models.PageStateError{Message: signal.Message}
		}

		if time.Since(start) >= deadline {
			timeout := p.timeoutSignal()
			return "", &models.PageStateError{Message: timeout.Message}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick evaluates every signal source once, in priority order.
func (p *Poller) tick() OutcomeSignal {
	// 1. Durable-storage mirror survives full reloads; consult it first.
	stored, err := p.source.ConsumeStoredError()
	if gone := p.classifyGone(err); gone != nil {
		return *gone
	}
	if stored != "" {
		p.lastKnown = stored
		return OutcomeSignal{Kind: SignalError, Message: stored}
	}

	// 2. Observer's in-memory error field.
	live, err := p.source.LiveError()
	if gone := p.classifyGone(err); gone != nil {
		return *gone
	}
	if live != "" {
		p.lastKnown = live
		return OutcomeSignal{Kind: SignalError, Message: live}
	}

	// 3. Blocked-transition growth is diagnostic only.
	if count, err := p.source.BlockedCount(); err == nil && count > p.blockedSeen {
		p.logger.Warn().Int("blocked", count).Msg("page attempted navigation while error overlay visible")
		p.blockedSeen = count
	} else if gone := p.classifyGone(err); gone != nil {
		return *gone
	}

	// 4. Success message.
	text, err := p.readText(p.cfg.SuccessSelector)
	if gone := p.classifyGone(err); gone != nil {
		return *gone
	}
	if text != "" {
		return OutcomeSignal{Kind: SignalSuccess, Message: text}
	}

	// 5. Generic error toast.
	text, err = p.readText(p.cfg.ToastSelector)
	if gone := p.classifyGone(err); gone != nil {
		return *gone
	}
	if text != "" {
		p.lastKnown = text
		return OutcomeSignal{Kind: SignalError, Message: text}
	}

	// 7. Back on the starting screen means the site bounced the request.
	if p.cfg.InitialStepSelector != "" {
		visible, err := p.page.Visible(p.cfg.InitialStepSelector)
		if gone := p.classifyGone(err); gone != nil {
			return *gone
		}
		if err == nil && visible {
			msg := p.lastKnown
			if msg == "" {
				msg = "the flow could not be completed, verify the submitted data"
			}
			return OutcomeSignal{Kind: SignalError, Message: msg}
		}
	}

	return OutcomeSignal{Kind: SignalPending}
}

func (p *Poller) timeoutSignal() OutcomeSignal {
	msg := "timed out waiting for the page to resolve"
	if p.lastKnown != "" {
		msg += ": last observed error: " + p.lastKnown
	}
	return OutcomeSignal{Kind: SignalTimeout, Message: msg}
}

// classifyGone turns a destroyed-page read failure into a terminal error
// signal. Other read failures are transient and ignored.
func (p *Poller) classifyGone(err error) *OutcomeSignal {
	if err == nil || !browser.IsPageGone(err) {
		return nil
	}
	msg := p.lastKnown
	if msg == "" {
		msg = "the page reloaded unexpectedly before reporting a result"
	}
	return &OutcomeSignal{Kind: SignalError, Message: msg}
}

func (p *Poller) readText(selector string) (string, error) {
	if selector == "" {
		return "", nil
	}
	has, err := p.page.Has(selector)
	if err != nil || !has {
		return "", err
	}
	text, err := p.page.Text(selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

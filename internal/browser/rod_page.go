package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Default wait applied to element lookups that are expected to resolve
// quickly. Longer waits go through WaitVisible/WaitGone explicitly.
const elementTimeout = 10 * time.Second

// rodPage adapts a rod page to the Page interface. Timeouts are scoped per
// operation; the page itself carries no deadline, so long polling flows
// decide their own lifetime.
type rodPage struct {
	page       *rod.Page
	navTimeout time.Duration
}

func (p *rodPage) Navigate(url string) error {
	if err := p.nav().Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) WaitLoad() error {
	return p.nav().WaitLoad()
}

// nav returns a clone bounded by the navigation timeout.
func (p *rodPage) nav() *rod.Page {
	if p.navTimeout > 0 {
		return p.page.Timeout(p.navTimeout)
	}
	return p.page
}

func (p *rodPage) WaitVisible(selector string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) WaitGone(selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := p.Visible(selector)
		if err != nil {
			return err
		}
		if !visible {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("element %s still visible after %s", selector, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func (p *rodPage) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

func (p *rodPage) Visible(selector string) (bool, error) {
	has, el, err := p.page.Has(selector)
	if err != nil || !has {
		return false, err
	}
	return el.Visible()
}

func (p *rodPage) Click(selector string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) ClickDisplayed(selector string) error {
	res, err := p.page.Eval(`(sel) => {
		const nodes = document.querySelectorAll(sel);
		for (const node of nodes) {
			if (node.offsetParent !== null && node.getAttribute('aria-hidden') !== 'true') {
				node.click();
				return true;
			}
		}
		return false;
	}`, selector)
	if err != nil {
		return fmt.Errorf("click displayed %s: %w", selector, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("no displayed element matches %s", selector)
	}
	return nil
}

func (p *rodPage) Fill(selector, value string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) SelectOption(selector, label string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.Select([]string{label}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("select %q in %s: %w", label, selector, err)
	}
	return nil
}

func (p *rodPage) Text(selector string) (string, error) {
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Eval(js string) (string, error) {
	res, err := p.page.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

func (p *rodPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(false, nil)
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) element(selector string) (*rod.Element, error) {
	el, err := p.page.Timeout(elementTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", selector, err)
	}
	return el, nil
}

package dian

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverifica/consultas-co-api/internal/browser"
	"github.com/coverifica/consultas-co-api/internal/captcha"
	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/models"
)

// loginPage simulates the portal's login screen: the form, the challenge
// widget and the post-submit outcome elements.
type loginPage struct {
	siteKey     string
	successText string
	toastText   string

	installs  int
	injected  string
	selected  []string
	filled    map[string]string
	submitted bool
}

func (p *loginPage) Navigate(string) error                   { return nil }
func (p *loginPage) WaitLoad() error                         { return nil }
func (p *loginPage) WaitVisible(string, time.Duration) error { return nil }
func (p *loginPage) WaitGone(string, time.Duration) error    { return nil }
func (p *loginPage) Click(string) error                      { return nil }
func (p *loginPage) URL() string                             { return "https://portal.example/login" }

func (p *loginPage) ClickDisplayed(string) error {
	p.submitted = true
	return nil
}

func (p *loginPage) SelectOption(_, label string) error {
	p.selected = append(p.selected, label)
	return nil
}

func (p *loginPage) Fill(selector, value string) error {
	if p.filled == nil {
		p.filled = make(map[string]string)
	}
	p.filled[selector] = value
	return nil
}

func (p *loginPage) Has(selector string) (bool, error) {
	text, _ := p.Text(selector)
	return text != "", nil
}

func (p *loginPage) Visible(string) (bool, error) { return false, nil }

func (p *loginPage) Text(selector string) (string, error) {
	if !p.submitted {
		return "", nil
	}
	switch selector {
	case successSelector:
		return p.successText, nil
	case toastSelector:
		return p.toastText, nil
	}
	return "", nil
}

func (p *loginPage) HTML() (string, error) { return "", nil }

func (p *loginPage) Eval(js string) (string, error) {
	switch {
	case strings.Contains(js, "MutationObserver"):
		p.installs++
		if p.installs == 1 {
			return "installed", nil
		}
		return "already-installed", nil
	case strings.Contains(js, "sessionStorage.getItem"):
		return "", nil
	case strings.Contains(js, "blockedTransitions.length"):
		return "0", nil
	case strings.Contains(js, "state.lastError"):
		return "", nil
	case strings.Contains(js, "data-sitekey"):
		return p.siteKey, nil
	case strings.Contains(js, challengeField):
		p.injected = js
		return "injected", nil
	}
	return "", nil
}

func (p *loginPage) Screenshot() ([]byte, error) { return []byte("png-bytes"), nil }

type stubProvider struct {
	name  string
	token string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Solve(context.Context, string, string) (string, error) {
	s.calls++
	return s.token, s.err
}

func testDianConfig() config.DianConfig {
	return config.DianConfig{
		LoginURL:        "https://portal.example/login",
		OutcomeDeadline: time.Second,
		PollInterval:    time.Millisecond,
	}
}

func newTestService(page browser.Page, solver *captcha.Chain, acquisitions *int) *Service {
	svc := NewService(config.BrowserConfig{Headless: true}, testDianConfig(), solver, nil, zerolog.Nop())
	svc.acquire = func(config.BrowserConfig, browser.Options, zerolog.Logger) (*browser.Session, error) {
		*acquisitions++
		return &browser.Session{Page: page}, nil
	}
	return svc
}

func TestRequestTokenValidationListsAllMissingFields(t *testing.T) {
	acquisitions := 0
	svc := newTestService(&loginPage{}, captcha.NewChain(zerolog.Nop()), &acquisitions)

	resp := svc.RequestToken(context.Background(), &models.DianTokenRequest{Origin: "portal-x"})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "identificationType")
	assert.Contains(t, resp.Error, "userCode")
	assert.Contains(t, resp.Error, "companyCode")
	assert.Equal(t, "portal-x", resp.Origin)
	assert.Zero(t, acquisitions, "validation must not acquire a browser")
}

func TestRequestTokenFallbackProviderTokenIsInjected(t *testing.T) {
	// Primary provider is down; the fallback eventually yields a token
	// and the submission proceeds with it.
	primary := &stubProvider{name: "primary", err: errors.New("service down")}
	fallback := &stubProvider{name: "fallback", token: "tok-b"}
	solver := captcha.NewChain(zerolog.Nop(), primary, fallback)

	page := &loginPage{siteKey: "0xSITEKEY", successText: "Se ha enviado un correo con el token"}
	acquisitions := 0
	svc := newTestService(page, solver, &acquisitions)

	resp := svc.RequestToken(context.Background(), &models.DianTokenRequest{
		IdentificationType: "Cedula de ciudadania",
		UserCode:           "79123456",
		CompanyCode:        "900123456",
	})

	require.True(t, resp.Success, "unexpected error: %s", resp.Error)
	assert.Equal(t, "Se ha enviado un correo con el token", resp.Message)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Contains(t, page.injected, "tok-b")
	assert.True(t, page.submitted)
}

func TestRequestTokenUnsolvedChallengeStillSubmits(t *testing.T) {
	solver := captcha.NewChain(zerolog.Nop(), &stubProvider{name: "p", err: errors.New("down")})
	page := &loginPage{siteKey: "0xSITEKEY", successText: "Token enviado"}
	acquisitions := 0
	svc := newTestService(page, solver, &acquisitions)

	resp := svc.RequestToken(context.Background(), &models.DianTokenRequest{
		IdentificationType: "Cedula de ciudadania",
		UserCode:           "79123456",
		CompanyCode:        "900123456",
	})

	require.True(t, resp.Success)
	assert.Empty(t, page.injected)
	assert.True(t, page.submitted)
}

func TestRequestTokenBadCertificateFailsBeforeBrowser(t *testing.T) {
	acquisitions := 0
	svc := newTestService(&loginPage{}, captcha.NewChain(zerolog.Nop()), &acquisitions)
	svc.cfg.CertificatePath = "/nonexistent/cert.p12"

	resp := svc.RequestToken(context.Background(), &models.DianTokenRequest{
		IdentificationType: "NIT",
		UserCode:           "79123456",
		CompanyCode:        "900123456",
	})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "certificate conversion failed")
	assert.Zero(t, acquisitions, "an unusable certificate must not acquire a browser")
}

func TestRequestTokenFailureCarriesScreenshot(t *testing.T) {
	page := &loginPage{toastText: "Datos de ingreso no validos"}
	acquisitions := 0
	svc := newTestService(page, captcha.NewChain(zerolog.Nop()), &acquisitions)

	resp := svc.RequestToken(context.Background(), &models.DianTokenRequest{
		IdentificationType: "NIT",
		UserCode:           "79123456",
		CompanyCode:        "900123456",
	})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Datos de ingreso no validos")
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), resp.Screenshot)
}

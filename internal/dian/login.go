package dian

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coverifica/consultas-co-api/internal/browser"
	"github.com/coverifica/consultas-co-api/internal/captcha"
	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/models"
	"github.com/coverifica/consultas-co-api/internal/pagestate"
	"github.com/coverifica/consultas-co-api/internal/proxy"
)

// Selectors for the tax portal's certificate-login screen.
const (
	identTypeSelector    = "select[name='tipoDocumento']"
	userCodeSelector     = "input[name='numeroDocumento']"
	companyCodeSelector  = "input[name='nitOrganizacion']"
	submitSelector       = "button.btn-ingresar"
	challengeSelector    = "[data-sitekey]"
	challengeField       = "cf-turnstile-response"
	successSelector      = ".mensaje-confirmacion"
	toastSelector        = ".alerta-error"
	initialStepSelector  = "#seleccionTipoUsuario"
	errorOverlaySelector = "#dialogoError"
	errorTitleSelector   = "#dialogoError .titulo"
	errorMessageSelector = "#dialogoError .mensaje"
)

type sessionFactory func(cfg config.BrowserConfig, opts browser.Options, logger zerolog.Logger) (*browser.Session, error)

// Service runs the certificate-login token-email flow. One browser session
// per invocation, released unconditionally.
type Service struct {
	browserCfg config.BrowserConfig
	cfg        config.DianConfig
	solver     *captcha.Chain
	proxies    *proxy.Pool
	logger     zerolog.Logger
	acquire    sessionFactory
}

// NewService builds the certificate-login service.
func NewService(browserCfg config.BrowserConfig, cfg config.DianConfig, solver *captcha.Chain, proxies *proxy.Pool, logger zerolog.Logger) *Service {
	return &Service{
		browserCfg: browserCfg,
		cfg:        cfg,
		solver:     solver,
		proxies:    proxies,
		logger:     logger,
		acquire:    browser.Acquire,
	}
}

// RequestToken submits the login form and waits until the portal either
// confirms the token email or reports a failure. Validation failures are
// reported before any browser resource is touched, listing every missing
// field at once.
func (s *Service) RequestToken(ctx context.Context, req *models.DianTokenRequest) *models.DianTokenResponse {
	if missing := req.Validate(); len(missing) > 0 {
		err := &models.ValidationError{Fields: missing}
		return &models.DianTokenResponse{Success: false, Error: err.Error(), Origin: req.Origin}
	}

	// The login form itself carries the codes; the PEM pair is not used
	// further. Converting here proves the blob and password before a
	// browser is spent on a login that cannot succeed.
	if s.cfg.CertificatePath != "" {
		if _, _, err := LoadCertificate(s.cfg.CertificatePath, s.cfg.CertificatePassword); err != nil {
			return &models.DianTokenResponse{Success: false, Error: err.Error(), Origin: req.Origin}
		}
	}

	headless := s.browserCfg.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}
	opts := browser.Options{Headless: headless}
	if s.proxies != nil {
		if cred, ok := s.proxies.Next(); ok {
			opts.Proxy = &cred
		}
	}

	session, err := s.acquire(s.browserCfg, opts, s.logger)
	if err != nil {
		return &models.DianTokenResponse{
			Success: false,
			Error:   fmt.Sprintf("browser session unavailable: %v", err),
			Origin:  req.Origin,
		}
	}
	defer session.Release()

	message, err := s.run(ctx, session.Page, req)
	if err != nil {
		s.logger.Error().Err(err).Msg("certificate login failed")
		return &models.DianTokenResponse{
			Success:    false,
			Error:      err.Error(),
			Origin:     req.Origin,
			Screenshot: s.captureScreenshot(session.Page),
		}
	}

	return &models.DianTokenResponse{Success: true, Message: message, Origin: req.Origin}
}

func (s *Service) run(ctx context.Context, page browser.Page, req *models.DianTokenRequest) (string, error) {
	if err := page.Navigate(s.cfg.LoginURL); err != nil {
		return "", fmt.Errorf("could not open login page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("login page did not load: %w", err)
	}

	observer := pagestate.NewObserver(page, pagestate.ObserverConfig{
		OverlaySelector: errorOverlaySelector,
		TitleSelector:   errorTitleSelector,
		MessageSelector: errorMessageSelector,
	}, s.logger)
	if _, err := observer.Install(); err != nil {
		return "", err
	}

	if err := page.SelectOption(identTypeSelector, req.IdentificationType); err != nil {
		return "", fmt.Errorf("could not select identification type: %w", err)
	}
	if err := page.Fill(userCodeSelector, req.UserCode); err != nil {
		return "", fmt.Errorf("could not fill user code: %w", err)
	}
	if err := page.Fill(companyCodeSelector, req.CompanyCode); err != nil {
		return "", fmt.Errorf("could not fill company code: %w", err)
	}

	s.solveChallenge(ctx, page)

	// Several submit buttons live in the DOM across the login variants;
	// only the displayed one belongs to this form.
	if err := page.ClickDisplayed(submitSelector); err != nil {
		return "", fmt.Errorf("could not submit login form: %w", err)
	}

	poller := pagestate.NewPoller(page, observer, pagestate.PollerConfig{
		SuccessSelector:     successSelector,
		ToastSelector:       toastSelector,
		InitialStepSelector: initialStepSelector,
		Interval:            s.cfg.PollInterval,
	}, s.logger)

	return poller.Await(ctx, s.cfg.OutcomeDeadline)
}

// solveChallenge finds the bot-detection widget, asks the provider chain
// for a token and injects it into the hidden response field. An unsolved
// challenge is not fatal here: the submission proceeds and the outcome
// poller reports whatever the portal decides.
func (s *Service) solveChallenge(ctx context.Context, page browser.Page) {
	siteKey, err := page.Eval(fmt.Sprintf(
		`() => { const el = document.querySelector(%q); return el ? el.getAttribute('data-sitekey') || '' : ''; }`,
		challengeSelector))
	if err != nil || siteKey == "" {
		s.logger.Debug().Msg("no challenge widget on login page")
		return
	}

	token := s.solver.Solve(ctx, siteKey, page.URL())
	if token == "" {
		s.logger.Warn().Msg("challenge unsolved, submitting without token")
		return
	}

	_, err = page.Eval(fmt.Sprintf(`() => {
		const field = document.querySelector('textarea[name=%q], input[name=%q]');
		if (!field) { return 'missing'; }
		field.value = %q;
		field.dispatchEvent(new Event('change', { bubbles: true }));
		return 'injected';
	}`, challengeField, challengeField, token))
	if err != nil {
		s.logger.Warn().Err(err).Msg("challenge token injection failed")
		return
	}
	s.logger.Info().Msg("challenge token injected")
}

// captureScreenshot is best effort; a failed capture never masks the
// primary error.
func (s *Service) captureScreenshot(page browser.Page) string {
	shot, err := page.Screenshot()
	if err != nil || len(shot) == 0 {
		s.logger.Warn().Err(err).Msg("failure screenshot unavailable")
		return ""
	}
	return base64.StdEncoding.EncodeToString(shot)
}

package rues

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coverifica/consultas-co-api/internal/browser"
	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/models"
	"github.com/coverifica/consultas-co-api/internal/proxy"
)

// sessionFactory acquires a browser session. Indirected so tests can run
// the flow without a real browser.
type sessionFactory func(cfg config.BrowserConfig, opts browser.Options, logger zerolog.Logger) (*browser.Session, error)

// Service runs the registry-search flow end to end. Each invocation
// acquires its own browser session and releases it unconditionally before
// returning.
type Service struct {
	browserCfg config.BrowserConfig
	cfg        config.RuesConfig
	proxies    *proxy.Pool
	logger     zerolog.Logger
	acquire    sessionFactory
}

// NewService builds the registry-search service.
func NewService(browserCfg config.BrowserConfig, cfg config.RuesConfig, proxies *proxy.Pool, logger zerolog.Logger) *Service {
	return &Service{
		browserCfg: browserCfg,
		cfg:        cfg,
		proxies:    proxies,
		logger:     logger,
		acquire:    browser.Acquire,
	}
}

// Search validates the request, runs the extractor and shapes the envelope.
// Validation failures never touch the browser.
func (s *Service) Search(ctx context.Context, req *models.RuesRequest) *models.RuesResponse {
	if missing := req.Validate(); len(missing) > 0 {
		err := &models.ValidationError{Fields: missing}
		return &models.RuesResponse{
			Success:   false,
			Error:     err.Error(),
			ErrorCode: models.CodeForError(err),
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
		return s.failure(fmt.Errorf("browser session unavailable: %w", err))
	}
	defer session.Release()

	record, err := s.run(ctx, session.Page, req.IdentificationNumber)
	if err != nil {
		return s.failure(err)
	}
	return &models.RuesResponse{Success: true, Data: record}
}

func (s *Service) run(ctx context.Context, page browser.Page, identification string) (*models.ExtractedRecord, error) {
	if err := page.Navigate(s.cfg.SearchURL); err != nil {
		return nil, fmt.Errorf("could not open registry search page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("registry search page did not load: %w", err)
	}
	return NewExtractor(page, s.cfg, s.logger).Search(ctx, identification)
}

func (s *Service) failure(err error) *models.RuesResponse {
	code := models.CodeForError(err)
	s.logger.Error().Err(err).Str("error_code", code).Msg("registry search failed")
	return &models.RuesResponse{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: code,
	}
}

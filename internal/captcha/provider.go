// Package captcha resolves Turnstile-style challenges through a chain of
// external solving services.
package captcha

import (
	"context"

	"github.com/rs/zerolog"
)

// Provider is one external challenge-solving service.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Solve submits the challenge and blocks until a token is available
	// or the provider gives up.
	Solve(ctx context.Context, siteKey, pageURL string) (string, error)
}

// Chain tries providers in priority order until one returns a token.
type Chain struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewChain builds a solver chain. Nil providers are skipped so callers can
// pass conditionally-constructed entries directly.
func NewChain(logger zerolog.Logger, providers ...Provider) *Chain {
	c := &Chain{logger: logger}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Solve returns a solution token, or "" when every provider failed or the
// chain is empty. Exhaustion is not an error: callers treat absence as
// "could not solve" and decide for themselves whether to proceed.
func (c *Chain) Solve(ctx context.Context, siteKey, pageURL string) string {
	for _, p := range c.providers {
		token, err := p.Solve(ctx, siteKey, pageURL)
		if err != nil {
			c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("challenge solve failed, trying next provider")
			continue
		}
		if token == "" {
			c.logger.Warn().Str("provider", p.Name()).Msg("provider returned empty token, trying next provider")
			continue
		}
		c.logger.Info().Str("provider", p.Name()).Msg("challenge solved")
		return token
	}
	c.logger.Warn().Msg("all challenge providers exhausted")
	return ""
}

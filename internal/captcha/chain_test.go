package captcha

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name  string
	token string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestChainFallsThroughOnError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("service down")}
	fallback := &stubProvider{name: "fallback", token: "tok-123"}

	chain := NewChain(zerolog.Nop(), primary, fallback)
	token := chain.Solve(context.Background(), "sitekey", "https://example.com")

	assert.Equal(t, "tok-123", token)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChainFallsThroughOnEmptyToken(t *testing.T) {
	primary := &stubProvider{name: "primary", token: ""}
	fallback := &stubProvider{name: "fallback", token: "tok-456"}

	chain := NewChain(zerolog.Nop(), primary, fallback)
	assert.Equal(t, "tok-456", chain.Solve(context.Background(), "k", "u"))
}

func TestChainPrimaryWinsWhenHealthy(t *testing.T) {
	primary := &stubProvider{name: "primary", token: "tok-a"}
	fallback := &stubProvider{name: "fallback", token: "tok-b"}

	chain := NewChain(zerolog.Nop(), primary, fallback)
	assert.Equal(t, "tok-a", chain.Solve(context.Background(), "k", "u"))
	assert.Zero(t, fallback.calls)
}

func TestChainExhaustedReturnsAbsence(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	fallback := &stubProvider{name: "fallback", err: errors.New("also boom")}

	chain := NewChain(zerolog.Nop(), primary, fallback)
	assert.Empty(t, chain.Solve(context.Background(), "k", "u"))
}

func TestChainSkipsNilProviders(t *testing.T) {
	// Disabled providers are constructed as nil and must not be called.
	fallback := &stubProvider{name: "fallback", token: "tok"}
	chain := NewChain(zerolog.Nop(), nil, fallback)
	assert.Equal(t, "tok", chain.Solve(context.Background(), "k", "u"))
}

func TestDisabledProvidersConstructNil(t *testing.T) {
	assert.Nil(t, NewCapSolver("", "https://api.example.com"))
	assert.Nil(t, NewTwoCaptcha("", "https://api.example.com", zerolog.Nop()))
}

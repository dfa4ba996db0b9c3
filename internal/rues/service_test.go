package rues

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverifica/consultas-co-api/internal/browser"
	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/models"
)

func newTestService(page browser.Page, acquisitions *int) *Service {
	svc := NewService(config.BrowserConfig{Headless: true}, fastConfig(), nil, zerolog.Nop())
	svc.acquire = func(config.BrowserConfig, browser.Options, zerolog.Logger) (*browser.Session, error) {
		*acquisitions++
		return &browser.Session{Page: page}, nil
	}
	return svc
}

func TestServiceValidationNeverAcquiresBrowser(t *testing.T) {
	acquisitions := 0
	svc := newTestService(&scriptedPage{}, &acquisitions)

	resp := svc.Search(context.Background(), &models.RuesRequest{IdentificationNumber: "  "})

	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrorCodeValidation, resp.ErrorCode)
	assert.Contains(t, resp.Error, "identificationNumber")
	assert.Zero(t, acquisitions)
}

func TestServiceSuccessEnvelope(t *testing.T) {
	acquisitions := 0
	page := &scriptedPage{
		scripts: map[string]categoryScript{
			PrimaryRegistry.Label():    {},
			NonProfitRegistry.Label():  {resultsHTML: resultsPageHTML},
			SolidarityRegistry.Label(): {},
		},
		detailHTML: detailPageHTML,
	}
	svc := newTestService(page, &acquisitions)

	resp := svc.Search(context.Background(), &models.RuesRequest{IdentificationNumber: "900123456"})

	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "Entidades sin animo de lucro", resp.Data.CompanyType)
	assert.Equal(t, 1, acquisitions)
}

func TestServiceNotFoundEnvelope(t *testing.T) {
	acquisitions := 0
	page := &scriptedPage{scripts: map[string]categoryScript{
		PrimaryRegistry.Label():    {},
		NonProfitRegistry.Label():  {},
		SolidarityRegistry.Label(): {},
	}}
	svc := newTestService(page, &acquisitions)

	resp := svc.Search(context.Background(), &models.RuesRequest{IdentificationNumber: "000000000"})

	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrorCodeNotFound, resp.ErrorCode)
	assert.Nil(t, resp.Data)
}

package dian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverifica/consultas-co-api/internal/models"
)

func TestConvertCertificateRejectsGarbage(t *testing.T) {
	_, _, err := ConvertCertificate([]byte("not a pkcs12 blob"), "secret")

	var conv *models.ConversionError
	require.ErrorAs(t, err, &conv)
}

func TestLoadCertificateMissingFile(t *testing.T) {
	_, _, err := LoadCertificate("/nonexistent/cert.p12", "secret")

	var conv *models.ConversionError
	require.ErrorAs(t, err, &conv)
	assert.Contains(t, err.Error(), "certificate conversion failed")
}

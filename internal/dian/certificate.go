// Package dian implements the tax-portal certificate login flow: form
// submission with a converted client certificate, challenge solving and
// outcome polling until the portal confirms the token email.
package dian

import (
	"encoding/pem"
	"errors"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/coverifica/consultas-co-api/internal/models"
)

// ConvertCertificate turns an encrypted PKCS#12 blob into PEM-encoded
// certificate and private-key blocks. A wrong password or a malformed blob
// yields a ConversionError.
func ConvertCertificate(blob []byte, password string) (certPEM, keyPEM []byte, err error) {
	blocks, err := pkcs12.ToPEM(blob, password)
	if err != nil {
		return nil, nil, &models.ConversionError{Cause: err}
	}

	for _, block := range blocks {
		block.Headers = nil
		encoded := pem.EncodeToMemory(block)
		if block.Type == "CERTIFICATE" {
			certPEM = append(certPEM, encoded...)
		} else {
			keyPEM = append(keyPEM, encoded...)
		}
	}

	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, nil, &models.ConversionError{Cause: errors.New("pkcs12 blob missing certificate or key")}
	}
	return certPEM, keyPEM, nil
}

// LoadCertificate reads the certificate file and converts it.
func LoadCertificate(path, password string) (certPEM, keyPEM []byte, err error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &models.ConversionError{Cause: err}
	}
	return ConvertCertificate(blob, password)
}

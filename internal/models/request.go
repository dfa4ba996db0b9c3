package models

import "strings"

// RuesRequest is the input for the registry-search flow.
type RuesRequest struct {
	// IdentificationNumber is the NIT or cedula to search, digits only.
	IdentificationNumber string `json:"identificationNumber"`
	// Headless overrides the configured browser mode when present.
	Headless *bool `json:"headless,omitempty"`
}

// Validate returns the list of missing required field names.
func (r *RuesRequest) Validate() []string {
	var missing []string
	if strings.TrimSpace(r.IdentificationNumber) == "" {
		missing = append(missing, "identificationNumber")
	}
	return missing
}

// DianTokenRequest is the input for the certificate-login token-email flow.
type DianTokenRequest struct {
	IdentificationType string `json:"identificationType"`
	UserCode           string `json:"userCode"`
	CompanyCode        string `json:"companyCode"`
	Origin             string `json:"origin,omitempty"`
	Headless           *bool  `json:"headless,omitempty"`
}

// Validate returns the list of missing required field names. All missing
// fields are reported together so the caller can fix them in one pass.
func (r *DianTokenRequest) Validate() []string {
	var missing []string
	if strings.TrimSpace(r.IdentificationType) == "" {
		missing = append(missing, "identificationType")
	}
	if strings.TrimSpace(r.UserCode) == "" {
		missing = append(missing, "userCode")
	}
	if strings.TrimSpace(r.CompanyCode) == "" {
		missing = append(missing, "companyCode")
	}
	return missing
}

package models

// Error codes surfaced by the registry-search flow.
const (
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeAPIError   = "API_ERROR"
	ErrorCodeUnknown    = "UNKNOWN_ERROR"
	ErrorCodeValidation = "VALIDATION_ERROR"
)

// RuesResponse is the envelope returned by the registry-search flow.
type RuesResponse struct {
	Success   bool             `json:"success"`
	Data      *ExtractedRecord `json:"data,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"errorCode,omitempty"`
}

// DianTokenResponse is the envelope returned by the certificate-login flow.
type DianTokenResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Origin     string `json:"origin,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// EconomicActivity is one CIIU code with its description.
type EconomicActivity struct {
	Code        string `json:"codigo"`
	Description string `json:"descripcion"`
}

// ExtractedRecord is the normalized registry record assembled across the
// extraction stages. Fields the page did not expose stay empty.
type ExtractedRecord struct {
	Name                string             `json:"razon_social"`
	CompanyType         string             `json:"tipo_empresa"`
	Identification      string             `json:"identificacion"`
	RegistrationNumber  string             `json:"numero_registro"`
	Category            string             `json:"categoria"`
	ChamberOfCommerce   string             `json:"camara_comercio"`
	MatriculationNumber string             `json:"matricula"`
	Status              string             `json:"estado"`
	GeneralInfo         map[string]string  `json:"informacion_general"`
	EconomicActivities  []EconomicActivity `json:"actividades_economicas"`
	LegalRepresentative string             `json:"representante_legal"`
}

// StatusForCode maps a registry-search error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case ErrorCodeNotFound:
		return 404
	case ErrorCodeAPIError:
		return 503
	case ErrorCodeValidation:
		return 400
	default:
		return 500
	}
}

// Package rues drives the business-registry search UI: category selection,
// search submission, result-card handling and multi-tab detail extraction.
package rues

// Category is one of the mutually exclusive registry types. A search tries
// them in the order returned by Categories until one yields a record.
type Category int

const (
	// PrimaryRegistry covers commercially registered companies.
	PrimaryRegistry Category = iota
	// NonProfitRegistry covers non-profit entities.
	NonProfitRegistry
	// SolidarityRegistry covers solidarity-economy entities.
	SolidarityRegistry
)

// Categories returns the fixed search order.
func Categories() []Category {
	return []Category{PrimaryRegistry, NonProfitRegistry, SolidarityRegistry}
}

// Label returns the option text shown in the registry's category selector.
// The same text is stamped onto the extracted record as its company type,
// overriding whatever type the page displayed.
func (c Category) Label() string {
	switch c {
	case PrimaryRegistry:
		return "Registro mercantil"
	case NonProfitRegistry:
		return "Entidades sin animo de lucro"
	case SolidarityRegistry:
		return "Entidades de economia solidaria"
	default:
		return "Desconocido"
	}
}

// String returns a short identifier for logs.
func (c Category) String() string {
	switch c {
	case PrimaryRegistry:
		return "primary"
	case NonProfitRegistry:
		return "nonprofit"
	case SolidarityRegistry:
		return "solidarity"
	default:
		return "unknown"
	}
}

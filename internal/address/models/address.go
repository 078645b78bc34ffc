package models

import "fmt"

// CanonicalAddress is the normalized postal address shape that flows from
// registry lookup through session state into the issued credential.
// PostalCode is PII: any log line carrying an address must pass through
// pkg/privacy first.
type CanonicalAddress struct {
	BuildingName   string `json:"buildingName,omitempty"`
	BuildingNumber string `json:"buildingNumber,omitempty"`
	StreetName     string `json:"streetName,omitempty"`
	Locality       string `json:"addressLocality,omitempty"`
	PostalCode     string `json:"postalCode"`
	Country        string `json:"addressCountry,omitempty"`
	ValidFrom      string `json:"validFrom,omitempty"`
}

// Equal reports field-wise value equality. Candidate membership checks during
// confirmation rely on this, not on pointer identity.
func (a CanonicalAddress) Equal(other CanonicalAddress) bool {
	return a == other
}

// Summary renders the address for diagnostics. The caller is still required
// to sanitize the result before logging; Summary itself does not redact.
func (a CanonicalAddress) Summary() string {
	return fmt.Sprintf("%s %s %s, %s, %s, %s",
		a.BuildingName, a.BuildingNumber, a.StreetName, a.Locality, a.PostalCode, a.Country)
}

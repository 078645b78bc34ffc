package models

import (
	"time"

	addrmodels "address-cri/internal/address/models"
	dErrors "address-cri/pkg/domain-errors"
)

// W3C credential context and the identity vocabulary the address claim
// resolves against. Order matters: the base context must come first.
const (
	ContextCredentialsV1 = "https://www.w3.org/2018/credentials/v1"
	ContextIdentityV1    = "https://vocab.account.gov.uk/contexts/identity-v1.jsonld"

	TypeVerifiableCredential = "VerifiableCredential"
	TypeAddressCredential    = "AddressCredential"
)

// Subject carries the verified claims. The address is the confirmed
// canonical address from the verification session.
type Subject struct {
	ID      string                      `json:"id,omitempty"`
	Address addrmodels.CanonicalAddress `json:"address"`
}

// VerifiableCredential is the unsigned credential document. The signer wraps
// it in a JWS envelope; the document itself must round-trip through JSON
// without loss.
type VerifiableCredential struct {
	Context           []string  `json:"@context"`
	ID                string    `json:"id"`
	Type              []string  `json:"type"`
	Issuer            string    `json:"issuer"`
	IssuanceDate      time.Time `json:"issuanceDate"`
	ExpirationDate    time.Time `json:"expirationDate"`
	CredentialSubject Subject   `json:"credentialSubject"`
}

// New assembles an address credential with the standard contexts and types.
func New(credentialID, issuer, subjectID string, address addrmodels.CanonicalAddress, issuedAt time.Time, validity time.Duration) VerifiableCredential {
	return VerifiableCredential{
		Context:           []string{ContextCredentialsV1, ContextIdentityV1},
		ID:                credentialID,
		Type:              []string{TypeVerifiableCredential, TypeAddressCredential},
		Issuer:            issuer,
		IssuanceDate:      issuedAt,
		ExpirationDate:    issuedAt.Add(validity),
		CredentialSubject: Subject{ID: subjectID, Address: address},
	}
}

// Validate checks the structural rules every issued credential must satisfy.
func (c VerifiableCredential) Validate() error {
	if len(c.Context) == 0 || c.Context[0] != ContextCredentialsV1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential context must start with the base credentials context")
	}
	if len(c.Type) == 0 || c.Type[0] != TypeVerifiableCredential {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential type must start with VerifiableCredential")
	}
	if c.ID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential id is required")
	}
	if c.Issuer == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential issuer is required")
	}
	if !c.ExpirationDate.After(c.IssuanceDate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential expiry must follow issuance")
	}
	return nil
}

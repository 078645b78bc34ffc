package handler

import (
	"strings"

	addrmodels "address-cri/internal/address/models"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
)

// CreateSessionRequest is the HTTP request body for POST /session.
type CreateSessionRequest struct {
	ClientID string `json:"client_id"`
}

func (r *CreateSessionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ClientID = strings.TrimSpace(r.ClientID)
	return nil
}

// SubmitPostcodeRequest is the HTTP request body for
// POST /session/{sessionId}/postcode.
type SubmitPostcodeRequest struct {
	Postcode string `json:"postcode"`
}

func (r *SubmitPostcodeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Postcode) == "" {
		return dErrors.New(dErrors.CodeValidation, "postcode is required")
	}
	return nil
}

// ConfirmAddressRequest is the HTTP request body for
// POST /session/{sessionId}/confirm. The body is the selected address as
// returned by the postcode submission response.
type ConfirmAddressRequest struct {
	Address addrmodels.CanonicalAddress `json:"address"`
}

func (r *ConfirmAddressRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Address.PostalCode == "" {
		return dErrors.New(dErrors.CodeValidation, "address.postalCode is required")
	}
	return nil
}

// TokenRequest is the HTTP request body for POST /token.
type TokenRequest struct {
	SessionID string `json:"session_id"`

	parsedSessionID id.SessionID
}

func (r *TokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	sessionID, err := id.ParseSessionID(strings.TrimSpace(r.SessionID))
	if err != nil {
		return err
	}
	r.parsedSessionID = sessionID
	return nil
}

// ParsedSessionID returns the validated session id.
func (r *TokenRequest) ParsedSessionID() id.SessionID {
	return r.parsedSessionID
}

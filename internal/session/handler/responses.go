package handler

import (
	"time"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/session/models"
)

// SessionResponse is the common session envelope.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AddressesResponse is the response for POST /session/{sessionId}/postcode.
type AddressesResponse struct {
	SessionID string                        `json:"session_id"`
	State     string                        `json:"state"`
	Addresses []addrmodels.CanonicalAddress `json:"addresses"`
}

// ConfirmResponse is the response for POST /session/{sessionId}/confirm.
type ConfirmResponse struct {
	SessionID        string                       `json:"session_id"`
	State            string                       `json:"state"`
	ConfirmedAddress *addrmodels.CanonicalAddress `json:"confirmed_address"`
}

// TokenResponse is the response for POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// FromSession converts a session to its envelope.
func FromSession(session *models.Session) *SessionResponse {
	return &SessionResponse{
		SessionID: session.ID.String(),
		State:     string(session.State),
		ExpiresAt: session.ExpiresAt,
	}
}

// FromSubmission converts a session after postcode submission.
func FromSubmission(session *models.Session) *AddressesResponse {
	return &AddressesResponse{
		SessionID: session.ID.String(),
		State:     string(session.State),
		Addresses: session.CandidateAddresses,
	}
}

// FromConfirmation converts a session after address confirmation.
func FromConfirmation(session *models.Session) *ConfirmResponse {
	return &ConfirmResponse{
		SessionID:        session.ID.String(),
		State:            string(session.State),
		ConfirmedAddress: session.ConfirmedAddress,
	}
}

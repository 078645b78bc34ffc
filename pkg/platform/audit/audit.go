// Package audit defines the audit event shape and the publisher contract.
// Services emit audit events on every lifecycle transition; publishing is
// best-effort and must never fail the request being audited.
//
// Audit payloads never carry raw postal codes or full addresses; they record
// identifiers and actions only.
package audit

import "time"

// Action identifies an audited lifecycle transition.
type Action string

const (
	ActionSessionCreated   Action = "session_created"
	ActionAddressSubmitted Action = "address_submitted"
	ActionAddressConfirmed Action = "address_confirmed"
	ActionTokenIssued      Action = "access_token_issued"
	ActionCredentialIssued Action = "credential_issued"
)

// Event is one audit record. Device is the caller's condensed device name,
// never the raw User-Agent header.
type Event struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	ClientID  string    `json:"client_id,omitempty"`
	Device    string    `json:"device,omitempty"`
	Action    Action    `json:"action"`
	At        time.Time `json:"at"`
}

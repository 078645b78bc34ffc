package models

import (
	"time"

	addrmodels "address-cri/internal/address/models"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
)

// State is the lifecycle state of an address-verification session.
type State string

const (
	StateCreated          State = "CREATED"
	StateAddressSubmitted State = "ADDRESS_SUBMITTED"
	StateAddressConfirmed State = "ADDRESS_CONFIRMED"
	StateExpired          State = "EXPIRED"
)

// stateRank orders states so transitions can only move forward.
var stateRank = map[State]int{
	StateCreated:          0,
	StateAddressSubmitted: 1,
	StateAddressConfirmed: 2,
	StateExpired:          3,
}

// Session tracks one user's progress through address verification.
//
// Invariants, enforced by the Apply* methods:
//   - ConfirmedAddress is non-nil iff State is ADDRESS_CONFIRMED
//   - State never transitions backward
//   - a session past ExpiresAt rejects all mutations
type Session struct {
	ID                 id.SessionID                  `json:"session_id"`
	ClientID           string                        `json:"client_id"`
	State              State                         `json:"state"`
	CreatedAt          time.Time                     `json:"created_at"`
	ExpiresAt          time.Time                     `json:"expires_at"`
	CandidateAddresses []addrmodels.CanonicalAddress `json:"candidate_addresses,omitempty"`
	ConfirmedAddress   *addrmodels.CanonicalAddress  `json:"confirmed_address,omitempty"`

	// AccessToken is the opaque bearer token bound to this session for the
	// credential-issuance leg; empty until issued.
	AccessToken string `json:"access_token,omitempty"`
}

// NewSession allocates a session in CREATED state with expiry fixed at
// creation time plus ttl.
func NewSession(sessionID id.SessionID, clientID string, now time.Time, ttl time.Duration) (*Session, error) {
	if sessionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session id cannot be nil")
	}
	if clientID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ttl must be positive")
	}
	return &Session{
		ID:        sessionID,
		ClientID:  clientID,
		State:     StateCreated,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session has passed its TTL at the given time.
// The stored State field is not rewritten on expiry; expiry is time-triggered
// and evaluated on read.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// EffectiveState resolves the time-triggered EXPIRED transition: a session
// whose TTL has passed reports EXPIRED regardless of the persisted state,
// except that a confirmed session stays terminal as confirmed.
func (s *Session) EffectiveState(now time.Time) State {
	if s.State != StateAddressConfirmed && s.IsExpired(now) {
		return StateExpired
	}
	return s.State
}

// canMutate guards every write against the terminal states.
func (s *Session) canMutate(now time.Time) error {
	if s.State == StateExpired || s.IsExpired(now) {
		return dErrors.New(dErrors.CodeExpired, "session has expired")
	}
	return nil
}

// CanSubmitAddresses reports whether candidate addresses may be recorded.
func (s *Session) CanSubmitAddresses(now time.Time) error {
	if err := s.canMutate(now); err != nil {
		return err
	}
	if s.State == StateAddressConfirmed {
		return dErrors.New(dErrors.CodeInvalidState, "session address is already confirmed")
	}
	return nil
}

// ApplySubmission appends lookup candidates and advances to ADDRESS_SUBMITTED.
func (s *Session) ApplySubmission(candidates []addrmodels.CanonicalAddress, now time.Time) error {
	if err := s.CanSubmitAddresses(now); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one candidate address is required")
	}
	s.CandidateAddresses = append(s.CandidateAddresses, candidates...)
	s.advance(StateAddressSubmitted)
	return nil
}

// CanConfirmAddress reports whether an address may be confirmed.
func (s *Session) CanConfirmAddress(now time.Time) error {
	if err := s.canMutate(now); err != nil {
		return err
	}
	switch s.State {
	case StateAddressConfirmed:
		return dErrors.New(dErrors.CodeInvalidState, "session address is already confirmed")
	case StateCreated:
		return dErrors.New(dErrors.CodeInvalidState, "no candidate addresses submitted")
	}
	return nil
}

// ApplyConfirmation selects one of the candidate addresses as confirmed and
// advances to the terminal ADDRESS_CONFIRMED state. The selected address must
// match a candidate by value.
func (s *Session) ApplyConfirmation(selected addrmodels.CanonicalAddress, now time.Time) error {
	if err := s.CanConfirmAddress(now); err != nil {
		return err
	}
	for _, candidate := range s.CandidateAddresses {
		if candidate.Equal(selected) {
			s.ConfirmedAddress = &selected
			s.advance(StateAddressConfirmed)
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, "selected address is not one of the session candidates")
}

// advance moves state forward only; backward transitions are dropped.
func (s *Session) advance(next State) {
	if stateRank[next] > stateRank[s.State] {
		s.State = next
	}
}

// CheckInvariant verifies the core data-integrity rule after a mutation:
// ConfirmedAddress is set iff the session is ADDRESS_CONFIRMED.
func (s *Session) CheckInvariant() error {
	confirmed := s.State == StateAddressConfirmed
	if confirmed && s.ConfirmedAddress == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "confirmed session has no confirmed address")
	}
	if !confirmed && s.ConfirmedAddress != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "unconfirmed session has a confirmed address")
	}
	return nil
}

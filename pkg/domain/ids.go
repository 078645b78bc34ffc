package domain

import (
	"github.com/google/uuid"

	dErrors "address-cri/pkg/domain-errors"
)

// SessionID is the opaque identifier of an address-verification session.
// A distinct type keeps session IDs from being confused with other UUIDs
// at compile time.
type SessionID uuid.UUID

// NewSessionID allocates a fresh random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID validates and returns a SessionID.
// IDs must be valid, non-nil UUIDs.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "session id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "session id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "session id must not be nil")
	}
	return SessionID(parsed), nil
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

// IsZero reports whether the ID is the nil UUID.
func (s SessionID) IsZero() bool {
	return uuid.UUID(s) == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler so session IDs round-trip
// through JSON-encoded store records.
func (s SessionID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*s = SessionID(parsed)
	return nil
}

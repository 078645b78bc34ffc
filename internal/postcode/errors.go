package postcode

import (
	"errors"
	"fmt"
)

// Kind is the normalized failure taxonomy for registry lookups.
type Kind string

const (
	// KindValidation indicates a malformed postcode; no network call was made.
	KindValidation Kind = "validation"

	// KindNotFound indicates the registry returned an empty result set.
	KindNotFound Kind = "not_found"

	// KindTimeout indicates the registry call exceeded its deadline or the
	// transport failed.
	KindTimeout Kind = "timeout"

	// KindProvider indicates the registry rejected the request (4xx) or
	// returned a fault payload.
	KindProvider Kind = "provider_error"
)

// LookupError wraps registry failures with normalized categorization so
// callers branch on Kind rather than on status codes or message text.
type LookupError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Underlying error
}

func (e *LookupError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("postcode lookup [%s]: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("postcode lookup [%s]: %s", e.Kind, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Underlying
}

func newLookupError(kind Kind, message string, underlying error) *LookupError {
	return &LookupError{Kind: kind, Message: message, Underlying: underlying}
}

// KindOf extracts the failure kind from an error chain. Unrecognized errors
// report KindProvider.
func KindOf(err error) Kind {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindProvider
}

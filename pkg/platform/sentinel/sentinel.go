package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store or registry
// - ErrExpired: session has passed its TTL
// - ErrConflict: write lost against a concurrent writer
// - ErrInvalidState: session in wrong state for the requested operation
// - ErrUnavailable: store or external registry temporarily unavailable
//
// For validation errors (bad input, malformed postcodes), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	addrmodels "address-cri/internal/address/models"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
)

var (
	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	testTTL = time.Hour
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(id.NewSessionID(), "ipv-core", testNow, testTTL)
	require.NoError(t, err)
	return s
}

func testAddress(postcode string) addrmodels.CanonicalAddress {
	return addrmodels.CanonicalAddress{
		BuildingNumber: "10",
		StreetName:     "Downing Street",
		Locality:       "London",
		PostalCode:     postcode,
		Country:        "GB",
		ValidFrom:      "2020-01-01",
	}
}

func TestNewSession(t *testing.T) {
	t.Run("expiry equals creation plus ttl", func(t *testing.T) {
		s := newTestSession(t)
		assert.Equal(t, StateCreated, s.State)
		assert.Equal(t, testNow, s.CreatedAt)
		assert.Equal(t, testNow.Add(testTTL), s.ExpiresAt)
		assert.NoError(t, s.CheckInvariant())
	})

	t.Run("rejects empty client id", func(t *testing.T) {
		_, err := NewSession(id.NewSessionID(), "", testNow, testTTL)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		_, err := NewSession(id.NewSessionID(), "ipv-core", testNow, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestApplySubmission(t *testing.T) {
	t.Run("advances to ADDRESS_SUBMITTED", func(t *testing.T) {
		s := newTestSession(t)
		err := s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("SW1A 2AA")}, testNow)
		require.NoError(t, err)
		assert.Equal(t, StateAddressSubmitted, s.State)
		assert.Len(t, s.CandidateAddresses, 1)
		assert.NoError(t, s.CheckInvariant())
	})

	t.Run("appends on repeat submission and keeps order", func(t *testing.T) {
		s := newTestSession(t)
		require.NoError(t, s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("SW1A 2AA")}, testNow))
		require.NoError(t, s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("EC1A 1BB")}, testNow))
		require.Len(t, s.CandidateAddresses, 2)
		assert.Equal(t, "SW1A 2AA", s.CandidateAddresses[0].PostalCode)
		assert.Equal(t, "EC1A 1BB", s.CandidateAddresses[1].PostalCode)
	})

	t.Run("rejects empty candidate list", func(t *testing.T) {
		s := newTestSession(t)
		err := s.ApplySubmission(nil, testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, StateCreated, s.State)
	})

	t.Run("rejects submission after expiry and leaves state unchanged", func(t *testing.T) {
		s := newTestSession(t)
		late := testNow.Add(testTTL + time.Minute)
		err := s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("SW1A 2AA")}, late)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
		assert.Equal(t, StateCreated, s.State)
		assert.Empty(t, s.CandidateAddresses)
	})

	t.Run("rejects submission after confirmation", func(t *testing.T) {
		s := confirmedSession(t)
		err := s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("M1 1AE")}, testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestApplyConfirmation(t *testing.T) {
	t.Run("confirms a candidate by value", func(t *testing.T) {
		s := newTestSession(t)
		addr := testAddress("SW1A 2AA")
		require.NoError(t, s.ApplySubmission([]addrmodels.CanonicalAddress{addr}, testNow))

		// A fresh value, not the stored slice element.
		err := s.ApplyConfirmation(testAddress("SW1A 2AA"), testNow)
		require.NoError(t, err)
		assert.Equal(t, StateAddressConfirmed, s.State)
		require.NotNil(t, s.ConfirmedAddress)
		assert.True(t, s.ConfirmedAddress.Equal(addr))
		assert.NoError(t, s.CheckInvariant())
	})

	t.Run("rejects address outside candidate list", func(t *testing.T) {
		s := newTestSession(t)
		require.NoError(t, s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("SW1A 2AA")}, testNow))

		err := s.ApplyConfirmation(testAddress("EC1A 1BB"), testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Nil(t, s.ConfirmedAddress)
		assert.NoError(t, s.CheckInvariant())
	})

	t.Run("rejects confirmation before submission", func(t *testing.T) {
		s := newTestSession(t)
		err := s.ApplyConfirmation(testAddress("SW1A 2AA"), testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("rejects double confirmation", func(t *testing.T) {
		s := confirmedSession(t)
		err := s.ApplyConfirmation(testAddress("SW1A 2AA"), testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("rejects confirmation after expiry", func(t *testing.T) {
		s := newTestSession(t)
		require.NoError(t, s.ApplySubmission([]addrmodels.CanonicalAddress{testAddress("SW1A 2AA")}, testNow))

		late := testNow.Add(testTTL + time.Minute)
		err := s.ApplyConfirmation(testAddress("SW1A 2AA"), late)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
		assert.Equal(t, StateAddressSubmitted, s.State)
		assert.NoError(t, s.CheckInvariant())
	})
}

func TestEffectiveState(t *testing.T) {
	t.Run("reports EXPIRED once TTL passes", func(t *testing.T) {
		s := newTestSession(t)
		assert.Equal(t, StateCreated, s.EffectiveState(testNow))
		assert.Equal(t, StateExpired, s.EffectiveState(testNow.Add(testTTL+time.Second)))
	})

	t.Run("confirmed sessions stay confirmed past TTL", func(t *testing.T) {
		s := confirmedSession(t)
		assert.Equal(t, StateAddressConfirmed, s.EffectiveState(testNow.Add(testTTL+time.Hour)))
	})
}

// Invariant property: ConfirmedAddress is non-nil iff state is
// ADDRESS_CONFIRMED, after every operation in every order attempted here.
func TestInvariantHeldAcrossOperations(t *testing.T) {
	addrs := []addrmodels.CanonicalAddress{testAddress("SW1A 2AA"), testAddress("EC1A 1BB")}

	ops := []func(s *Session) error{
		func(s *Session) error { return s.ApplySubmission(addrs, testNow) },
		func(s *Session) error { return s.ApplyConfirmation(addrs[1], testNow) },
		func(s *Session) error { return s.ApplySubmission(addrs[:1], testNow) },
		func(s *Session) error { return s.ApplyConfirmation(addrs[0], testNow) },
	}

	// Try every pair ordering; errors are expected for invalid orders, the
	// invariant must hold regardless.
	for i := range ops {
		for j := range ops {
			s := newTestSession(t)
			_ = ops[i](s)
			_ = ops[j](s)
			assert.NoError(t, s.CheckInvariant(), "ops %d,%d", i, j)
		}
	}
}

func confirmedSession(t *testing.T) *Session {
	t.Helper()
	s := newTestSession(t)
	addr := testAddress("SW1A 2AA")
	require.NoError(t, s.ApplySubmission([]addrmodels.CanonicalAddress{addr}, testNow))
	require.NoError(t, s.ApplyConfirmation(addr, testNow))
	return s
}

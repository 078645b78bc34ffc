package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/credential/models"
	dErrors "address-cri/pkg/domain-errors"
)

func signerTestCredential(issuedAt time.Time) models.VerifiableCredential {
	return models.New(
		"urn:uuid:7f6b3a6e-0000-0000-0000-000000000001",
		"https://cri.example.gov.uk",
		"urn:uuid:subject",
		addrmodels.CanonicalAddress{
			BuildingNumber: "10",
			StreetName:     "DOWNING STREET",
			Locality:       "LONDON",
			PostalCode:     "SW1A 1AA",
			Country:        "GB",
		},
		issuedAt,
		time.Hour,
	)
}

func TestJWTSignerRoundTrip(t *testing.T) {
	signer := NewJWTSigner("test-signing-key", "key-1")
	vc := signerTestCredential(time.Now().UTC().Truncate(time.Second))

	envelope, err := signer.Sign(context.Background(), vc)
	require.NoError(t, err)
	require.NotEmpty(t, envelope)

	claims, err := signer.Parse(envelope)
	require.NoError(t, err)
	assert.Equal(t, vc, claims.VC)
	assert.Equal(t, vc.Issuer, claims.Issuer)
	assert.Equal(t, vc.CredentialSubject.ID, claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTSignerRejectsTamperedEnvelope(t *testing.T) {
	signer := NewJWTSigner("test-signing-key", "key-1")
	other := NewJWTSigner("different-key", "key-1")
	vc := signerTestCredential(time.Now().UTC())

	envelope, err := signer.Sign(context.Background(), vc)
	require.NoError(t, err)

	_, err = other.Parse(envelope)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTSignerRejectsInvalidCredential(t *testing.T) {
	signer := NewJWTSigner("test-signing-key", "key-1")
	vc := signerTestCredential(time.Now().UTC())
	vc.Issuer = ""

	_, err := signer.Sign(context.Background(), vc)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestJWTSignerHonoursContext(t *testing.T) {
	signer := NewJWTSigner("test-signing-key", "key-1")
	vc := signerTestCredential(time.Now().UTC())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := signer.Sign(ctx, vc)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

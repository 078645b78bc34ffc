package credential

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"address-cri/internal/credential/models"
	dErrors "address-cri/pkg/domain-errors"
)

// Signer wraps a credential document in a signed compact JWS envelope.
// Implementations must respect ctx cancellation, since signing may call out
// to an HSM or KMS in production deployments.
type Signer interface {
	Sign(ctx context.Context, credential models.VerifiableCredential) (string, error)
}

// VCClaims is the JWT claim set for a credential envelope. The credential
// document rides in the "vc" claim and must round-trip losslessly.
type VCClaims struct {
	VC models.VerifiableCredential `json:"vc"`
	jwt.RegisteredClaims
}

// JWTSigner signs credential envelopes with HS256.
type JWTSigner struct {
	signingKey []byte
	keyID      string
}

func NewJWTSigner(signingKey, keyID string) *JWTSigner {
	return &JWTSigner{signingKey: []byte(signingKey), keyID: keyID}
}

func (s *JWTSigner) Sign(ctx context.Context, credential models.VerifiableCredential) (string, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", dErrors.Wrap(err, dErrors.CodeTimeout, "credential signing timed out")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "credential signing cancelled")
	}
	if err := credential.Validate(); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, VCClaims{
		VC: credential,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    credential.Issuer,
			Subject:   credential.CredentialSubject.ID,
			ExpiresAt: jwt.NewNumericDate(credential.ExpirationDate),
			IssuedAt:  jwt.NewNumericDate(credential.IssuanceDate),
			NotBefore: jwt.NewNumericDate(credential.IssuanceDate),
			ID:        uuid.NewString(),
		},
	})
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}
	return signed, nil
}

// Parse verifies a signed envelope and returns its claims, including the
// embedded credential document.
func (s *JWTSigner) Parse(envelope string) (*VCClaims, error) {
	parsed, err := jwt.ParseWithClaims(envelope, &VCClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(time.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpired, "credential has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credential envelope")
	}
	claims, ok := parsed.Claims.(*VCClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credential claims")
	}
	return claims, nil
}

package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/credential/models"
	sessionmodels "address-cri/internal/session/models"
	"address-cri/internal/session/store"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/platform/audit"
	"address-cri/pkg/platform/audit/publisher"
	"address-cri/pkg/requestcontext"
)

var (
	testNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	testTTL = 30 * time.Minute
)

const testIssuer = "https://cri.example.gov.uk"

func confirmedTestAddress() addrmodels.CanonicalAddress {
	return addrmodels.CanonicalAddress{
		BuildingNumber: "10",
		StreetName:     "DOWNING STREET",
		Locality:       "LONDON",
		PostalCode:     "SW1A 1AA",
		Country:        "GB",
	}
}

// signerFunc adapts a function to the Signer interface for failure injection.
type signerFunc func(ctx context.Context, vc models.VerifiableCredential) (string, error)

func (f signerFunc) Sign(ctx context.Context, vc models.VerifiableCredential) (string, error) {
	return f(ctx, vc)
}

type CredentialServiceSuite struct {
	suite.Suite

	store   *store.InMemorySessionStore
	signer  *JWTSigner
	audit   *publisher.InMemoryPublisher
	service *Service
	ctx     context.Context
}

func (s *CredentialServiceSuite) SetupTest() {
	s.store = store.New()
	s.signer = NewJWTSigner("test-signing-key", "key-1")
	s.audit = publisher.NewInMemory()
	s.service = New(s.store, s.signer, testIssuer, time.Hour, WithAuditPublisher(s.audit))
	s.ctx = requestcontext.WithTime(context.Background(), testNow)
}

func TestCredentialServiceSuite(t *testing.T) {
	suite.Run(t, new(CredentialServiceSuite))
}

// seedSession stores a session in the given state, optionally bound to token.
func (s *CredentialServiceSuite) seedSession(state sessionmodels.State, token string) *sessionmodels.Session {
	session, err := sessionmodels.NewSession(id.NewSessionID(), "rp-client", testNow, testTTL)
	s.Require().NoError(err)

	if state != sessionmodels.StateCreated {
		s.Require().NoError(session.ApplySubmission([]addrmodels.CanonicalAddress{confirmedTestAddress()}, testNow))
	}
	if state == sessionmodels.StateAddressConfirmed {
		s.Require().NoError(session.ApplyConfirmation(confirmedTestAddress(), testNow))
	}
	s.Require().NoError(s.store.Create(s.ctx, session))
	if token != "" {
		s.Require().NoError(s.store.BindAccessToken(s.ctx, session.ID, token))
	}
	return session
}

func (s *CredentialServiceSuite) TestResolveSessionID() {
	s.Run("bound token resolves to its session", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "tok-abc")

		sessionID, err := s.service.ResolveSessionID(s.ctx, "tok-abc")
		s.Require().NoError(err)
		s.Equal(session.ID, sessionID)
	})

	s.Run("empty token returns unauthorized", func() {
		_, err := s.service.ResolveSessionID(s.ctx, "  ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unbound token returns unauthorized", func() {
		_, err := s.service.ResolveSessionID(s.ctx, "tok-unknown")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *CredentialServiceSuite) TestIssueCredential() {
	s.Run("confirmed session yields a signed credential", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "")

		vc, envelope, err := s.service.IssueCredential(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Equal(testIssuer, vc.Issuer)
		s.Equal([]string{models.ContextCredentialsV1, models.ContextIdentityV1}, vc.Context)
		s.Equal([]string{models.TypeVerifiableCredential, models.TypeAddressCredential}, vc.Type)
		s.Equal(testNow, vc.IssuanceDate)
		s.True(vc.CredentialSubject.Address.Equal(confirmedTestAddress()))

		claims, err := s.signer.Parse(envelope)
		s.Require().NoError(err)
		s.Equal(vc, claims.VC)
	})

	s.Run("emits credential_issued audit event", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "")

		_, _, err := s.service.IssueCredential(s.ctx, session.ID)
		s.Require().NoError(err)

		events := s.audit.Events()
		s.Require().NotEmpty(events)
		last := events[len(events)-1]
		s.Equal(audit.ActionCredentialIssued, last.Action)
		s.Equal(session.ID.String(), last.SessionID)
	})

	s.Run("unconfirmed session never reaches the signer", func() {
		session := s.seedSession(sessionmodels.StateAddressSubmitted, "")
		signerCalls := 0
		svc := New(s.store, signerFunc(func(context.Context, models.VerifiableCredential) (string, error) {
			signerCalls++
			return "", nil
		}), testIssuer, time.Hour)

		_, _, err := svc.IssueCredential(s.ctx, session.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(0, signerCalls)
	})

	s.Run("expired unconfirmed session returns expired", func() {
		session := s.seedSession(sessionmodels.StateAddressSubmitted, "")
		late := requestcontext.WithTime(context.Background(), testNow.Add(testTTL+time.Minute))

		_, _, err := s.service.IssueCredential(late, session.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("confirmed session stays issuable past expiry", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "")
		late := requestcontext.WithTime(context.Background(), testNow.Add(testTTL+time.Minute))

		_, envelope, err := s.service.IssueCredential(late, session.ID)
		s.Require().NoError(err)
		s.NotEmpty(envelope)
	})

	s.Run("confirmed session survives an expiry sweep and stays issuable", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "")
		lateNow := testNow.Add(testTTL + time.Hour)
		late := requestcontext.WithTime(context.Background(), lateNow)

		_, err := s.store.DeleteExpired(late, lateNow)
		s.Require().NoError(err)

		_, envelope, err := s.service.IssueCredential(late, session.ID)
		s.Require().NoError(err)
		s.NotEmpty(envelope)
	})

	s.Run("unknown session returns not found", func() {
		_, _, err := s.service.IssueCredential(s.ctx, id.NewSessionID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("signer failure surfaces as internal", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "")
		svc := New(s.store, signerFunc(func(context.Context, models.VerifiableCredential) (string, error) {
			return "", dErrors.New(dErrors.CodeInternal, "hsm unreachable")
		}), testIssuer, time.Hour)

		_, _, err := svc.IssueCredential(s.ctx, session.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("signer timeout surfaces as unavailable", func() {
		session := s.seedSession(sessionmodels.StateAddressConfirmed, "")
		svc := New(s.store, signerFunc(func(ctx context.Context, _ models.VerifiableCredential) (string, error) {
			return "", context.DeadlineExceeded
		}), testIssuer, time.Hour)

		_, _, err := svc.IssueCredential(s.ctx, session.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *CredentialServiceSuite) TestIssueForToken() {
	s.Run("resolves token then issues", func() {
		s.seedSession(sessionmodels.StateAddressConfirmed, "tok-issue")

		vc, envelope, err := s.service.IssueForToken(s.ctx, "tok-issue")
		s.Require().NoError(err)
		s.NotEmpty(envelope)
		s.True(vc.CredentialSubject.Address.Equal(confirmedTestAddress()))
	})

	s.Run("invalid token short-circuits issuance", func() {
		_, _, err := s.service.IssueForToken(s.ctx, "tok-bogus")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

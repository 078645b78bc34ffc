package credential

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	credentialmetrics "address-cri/internal/credential/metrics"
	"address-cri/internal/credential/models"
	sessionmodels "address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/platform/audit"
	"address-cri/pkg/platform/sentinel"
	"address-cri/pkg/privacy"
	"address-cri/pkg/requestcontext"
)

const defaultSignTimeout = 5 * time.Second

var tracer = otel.Tracer("address-cri/internal/credential")

// SessionStore exposes the session reads the credential flow needs.
type SessionStore interface {
	FindByID(ctx context.Context, sessionID id.SessionID) (*sessionmodels.Session, error)
	FindByAccessToken(ctx context.Context, token string) (*sessionmodels.Session, error)
}

// AuditPublisher delivers issuance audit events; emission is best-effort.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues signed address credentials against confirmed sessions.
type Service struct {
	sessions       SessionStore
	signer         Signer
	issuer         string
	credentialTTL  time.Duration
	signTimeout    time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *credentialmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *credentialmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSignTimeout bounds each signing call.
func WithSignTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.signTimeout = d
	}
}

// New constructs a Service. Issued credentials name the given issuer and are
// valid for credentialTTL from issuance.
func New(sessions SessionStore, signer Signer, issuer string, credentialTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		sessions:      sessions,
		signer:        signer,
		issuer:        issuer,
		credentialTTL: credentialTTL,
		signTimeout:   defaultSignTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveSessionID maps a bearer access token to its session. Absent,
// malformed, and unbound tokens all resolve to the same unauthorized error so
// callers cannot distinguish token existence.
func (s *Service) ResolveSessionID(ctx context.Context, accessToken string) (id.SessionID, error) {
	start := time.Now()
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return id.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid access token")
	}
	session, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid access token")
		}
		return id.SessionID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve access token")
	}
	if s.metrics != nil {
		s.metrics.ObserveResolve(start)
	}
	return session.ID, nil
}

// IssueCredential builds and signs an address credential for a confirmed
// session. The signer is never invoked unless the session holds a confirmed
// address.
func (s *Service) IssueCredential(ctx context.Context, sessionID id.SessionID) (models.VerifiableCredential, string, error) {
	if sessionID.IsZero() {
		return models.VerifiableCredential{}, "", dErrors.New(dErrors.CodeValidation, "session_id is required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.VerifiableCredential{}, "", dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return models.VerifiableCredential{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	now := requestcontext.Now(ctx)
	switch session.EffectiveState(now) {
	case sessionmodels.StateAddressConfirmed:
	case sessionmodels.StateExpired:
		return models.VerifiableCredential{}, "", dErrors.New(dErrors.CodeExpired, "session has expired")
	default:
		return models.VerifiableCredential{}, "", dErrors.New(dErrors.CodeInvalidState, "session address is not confirmed")
	}
	if session.ConfirmedAddress == nil {
		return models.VerifiableCredential{}, "", dErrors.New(dErrors.CodeInvariantViolation, "confirmed session has no confirmed address")
	}

	vc := models.New(
		"urn:uuid:"+uuid.NewString(),
		s.issuer,
		"urn:uuid:"+session.ID.String(),
		*session.ConfirmedAddress,
		now,
		s.credentialTTL,
	)

	envelope, err := s.sign(ctx, vc)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementSigningFailures()
		}
		s.logError(ctx, "credential signing failed",
			"session_id", session.ID.String(),
			"error", privacy.Sanitize(err.Error()))
		return models.VerifiableCredential{}, "", err
	}

	s.emitAudit(ctx, session, now)
	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued()
	}
	s.logInfo(ctx, "credential issued",
		"session_id", session.ID.String(),
		"credential_id", vc.ID)
	return vc, envelope, nil
}

// IssueForToken resolves the bearer token and issues against the resulting
// session in one step, the shape the HTTP handler consumes.
func (s *Service) IssueForToken(ctx context.Context, accessToken string) (models.VerifiableCredential, string, error) {
	sessionID, err := s.ResolveSessionID(ctx, accessToken)
	if err != nil {
		return models.VerifiableCredential{}, "", err
	}
	return s.IssueCredential(ctx, sessionID)
}

func (s *Service) sign(ctx context.Context, vc models.VerifiableCredential) (string, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "credential.sign")
	span.SetAttributes(attribute.String("credential.id", vc.ID))
	defer span.End()

	signCtx, cancel := context.WithTimeout(ctx, s.signTimeout)
	defer cancel()

	envelope, err := s.signer.Sign(signCtx, vc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || dErrors.HasCode(err, dErrors.CodeTimeout) {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "credential signer timed out")
		}
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return "", err
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "credential signer failed")
	}
	if s.metrics != nil {
		s.metrics.ObserveSigning(start)
	}
	return envelope, nil
}

func (s *Service) emitAudit(ctx context.Context, session *sessionmodels.Session, at time.Time) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		EventID:   uuid.NewString(),
		SessionID: session.ID.String(),
		ClientID:  session.ClientID,
		Device:    requestcontext.Device(ctx),
		Action:    audit.ActionCredentialIssued,
		At:        at,
	}); err != nil {
		s.logError(ctx, "audit emit failed", "error", privacy.Sanitize(err.Error()))
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}

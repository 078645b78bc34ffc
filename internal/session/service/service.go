package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/postcode"
	sessionmetrics "address-cri/internal/session/metrics"
	"address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/platform/audit"
	"address-cri/pkg/platform/sentinel"
	"address-cri/pkg/privacy"
	"address-cri/pkg/requestcontext"
	"address-cri/pkg/secrets"
)

// SessionStore persists verification sessions. Implementations return
// sentinel errors; this service translates them to domain errors.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	FindByAccessToken(ctx context.Context, token string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	BindAccessToken(ctx context.Context, sessionID id.SessionID, token string) error
}

// PostcodeLookup resolves a raw postcode into canonical candidate addresses.
type PostcodeLookup interface {
	Lookup(ctx context.Context, rawPostcode string) ([]addrmodels.CanonicalAddress, error)
}

// AuditPublisher delivers lifecycle audit events; emission is best-effort.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the address-verification session lifecycle: session
// creation, postcode submission, address confirmation, and access-token
// binding for the credential-issuance leg.
type Service struct {
	sessions       SessionStore
	registry       PostcodeLookup
	sessionTTL     time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *sessionmetrics.Metrics
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

func WithMetrics(m *sessionmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service. Sessions created through it expire sessionTTL
// after creation.
func New(sessions SessionStore, registry PostcodeLookup, sessionTTL time.Duration, opts ...Option) *Service {
	s := &Service{sessions: sessions, registry: registry, sessionTTL: sessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts a new verification session for a relying-party client.
func (s *Service) CreateSession(ctx context.Context, clientID string) (*models.Session, error) {
	start := time.Now()
	if clientID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "client_id is required")
	}

	session, err := models.NewSession(id.NewSessionID(), clientID, requestcontext.Now(ctx), s.sessionTTL)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "session already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.emitAudit(ctx, session, audit.ActionSessionCreated)
	if s.metrics != nil {
		s.metrics.IncrementSessionsCreated()
		s.metrics.ObserveCreateSession(start)
	}
	return session, nil
}

// GetSession loads a session by id, resolving the time-triggered expiry.
func (s *Service) GetSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.State = session.EffectiveState(requestcontext.Now(ctx))
	return session, nil
}

// SubmitAddresses resolves the raw postcode against the registry and records
// the candidates on the session. The session state is checked before any
// registry call, so expired or already-confirmed sessions never reach the
// network. A registry failure leaves the session untouched.
func (s *Service) SubmitAddresses(ctx context.Context, sessionID id.SessionID, rawPostcode string) (*models.Session, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.CanSubmitAddresses(now); err != nil {
		s.observeExpiry(err)
		return nil, err
	}

	candidates, err := s.registry.Lookup(ctx, rawPostcode)
	if err != nil {
		return nil, s.mapLookupErr(ctx, session, err)
	}

	if err := session.ApplySubmission(candidates, now); err != nil {
		return nil, err
	}
	if err := session.CheckInvariant(); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, s.wrapSessionErr(err, "failed to persist submitted addresses")
	}

	s.logInfo(ctx, "candidate addresses recorded",
		"session_id", session.ID.String(),
		"candidates", len(session.CandidateAddresses))
	s.emitAudit(ctx, session, audit.ActionAddressSubmitted)
	if s.metrics != nil {
		s.metrics.ObserveSubmitAddresses(start)
	}
	return session, nil
}

// ConfirmAddress selects one of the session's candidate addresses as the
// confirmed address and moves the session to its terminal confirmed state.
func (s *Service) ConfirmAddress(ctx context.Context, sessionID id.SessionID, selected addrmodels.CanonicalAddress) (*models.Session, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.ApplyConfirmation(selected, now); err != nil {
		s.observeExpiry(err)
		return nil, err
	}
	if err := session.CheckInvariant(); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, s.wrapSessionErr(err, "failed to persist confirmed address")
	}

	s.logInfo(ctx, "address confirmed", "session_id", session.ID.String())
	s.emitAudit(ctx, session, audit.ActionAddressConfirmed)
	if s.metrics != nil {
		s.metrics.IncrementSessionsConfirmed()
		s.metrics.ObserveConfirmAddress(start)
	}
	return session, nil
}

// GetConfirmedAddress returns the confirmed address for a session, or an
// error describing why none is available yet.
func (s *Service) GetConfirmedAddress(ctx context.Context, sessionID id.SessionID) (*addrmodels.CanonicalAddress, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.EffectiveState(requestcontext.Now(ctx)) {
	case models.StateAddressConfirmed:
		return session.ConfirmedAddress, nil
	case models.StateExpired:
		if s.metrics != nil {
			s.metrics.IncrementSessionsExpired()
		}
		return nil, dErrors.New(dErrors.CodeExpired, "session has expired")
	default:
		return nil, dErrors.New(dErrors.CodeInvalidState, "session has no confirmed address")
	}
}

// IssueAccessToken mints an opaque bearer token for a confirmed session and
// binds it as the session's secondary lookup key.
func (s *Service) IssueAccessToken(ctx context.Context, sessionID id.SessionID) (string, error) {
	now := requestcontext.Now(ctx)
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	switch session.EffectiveState(now) {
	case models.StateAddressConfirmed:
	case models.StateExpired:
		if s.metrics != nil {
			s.metrics.IncrementSessionsExpired()
		}
		return "", dErrors.New(dErrors.CodeExpired, "session has expired")
	default:
		return "", dErrors.New(dErrors.CodeInvalidState, "session address must be confirmed before token issuance")
	}

	token, err := secrets.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate access token")
	}
	if err := s.sessions.BindAccessToken(ctx, session.ID, token); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.New(dErrors.CodeConflict, "access token collision")
		}
		return "", s.wrapSessionErr(err, "failed to bind access token")
	}

	s.emitAudit(ctx, session, audit.ActionTokenIssued)
	return token, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	if sessionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "session_id is required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, s.wrapSessionErr(err, "failed to load session")
	}
	return session, nil
}

func (s *Service) wrapSessionErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	if errors.Is(err, sentinel.ErrExpired) {
		return dErrors.New(dErrors.CodeExpired, "session has expired")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// mapLookupErr translates the registry's typed failures into domain errors.
// The raw postcode never appears in the returned messages or logs.
func (s *Service) mapLookupErr(ctx context.Context, session *models.Session, err error) error {
	kind := postcode.KindOf(err)
	s.logWarn(ctx, "postcode lookup failed",
		"session_id", session.ID.String(),
		"kind", string(kind),
		"error", privacy.Sanitize(err.Error()))

	switch kind {
	case postcode.KindValidation:
		return dErrors.Wrap(err, dErrors.CodeValidation, "postcode is not valid")
	case postcode.KindNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "no addresses found for postcode")
	case postcode.KindTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "address registry timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "address registry is unavailable")
	}
}

func (s *Service) observeExpiry(err error) {
	if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeExpired) {
		s.metrics.IncrementSessionsExpired()
	}
}

func (s *Service) emitAudit(ctx context.Context, session *models.Session, action audit.Action) {
	s.logInfo(ctx, string(action),
		"session_id", session.ID.String(),
		"event", string(action),
		"log_type", "audit")
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		EventID:   uuid.NewString(),
		SessionID: session.ID.String(),
		ClientID:  session.ClientID,
		Device:    requestcontext.Device(ctx),
		Action:    action,
		At:        requestcontext.Now(ctx),
	}); err != nil {
		s.logWarn(ctx, "audit emit failed", "error", privacy.Sanitize(err.Error()))
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

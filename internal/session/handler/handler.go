package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/platform/httputil"
	"address-cri/pkg/requestcontext"
)

// Service defines the interface for session operations.
type Service interface {
	CreateSession(ctx context.Context, clientID string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	SubmitAddresses(ctx context.Context, sessionID id.SessionID, rawPostcode string) (*models.Session, error)
	ConfirmAddress(ctx context.Context, sessionID id.SessionID, selected addrmodels.CanonicalAddress) (*models.Session, error)
	IssueAccessToken(ctx context.Context, sessionID id.SessionID) (string, error)
}

// Handler wires session endpoints to the session service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a session handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/session", h.HandleCreateSession)
	r.Get("/session/{sessionID}", h.HandleGetSession)
	r.Post("/session/{sessionID}/postcode", h.HandleSubmitPostcode)
	r.Post("/session/{sessionID}/confirm", h.HandleConfirmAddress)
	r.Post("/token", h.HandleIssueToken)
}

// HandleCreateSession handles POST /session requests. The client id comes
// from the authenticated context; an explicit body value is accepted when no
// authentication middleware is mounted (local development).
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[CreateSessionRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	clientID := requestcontext.ClientID(ctx)
	if clientID == "" {
		clientID = req.ClientID
	}

	session, err := h.service.CreateSession(ctx, clientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "session creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session created",
		"request_id", requestID,
		"session_id", session.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSession(session))
}

// HandleGetSession handles GET /session/{sessionID} requests. The reported
// state reflects time-triggered expiry.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "session lookup failed",
			"request_id", requestID,
			"session_id", sessionID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

// HandleSubmitPostcode handles POST /session/{sessionID}/postcode requests.
func (h *Handler) HandleSubmitPostcode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[SubmitPostcodeRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.SubmitAddresses(ctx, sessionID, req.Postcode)
	if err != nil {
		h.logger.ErrorContext(ctx, "postcode submission failed",
			"request_id", requestID,
			"session_id", sessionID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "postcode submitted",
		"request_id", requestID,
		"session_id", sessionID.String(),
		"candidates", len(session.CandidateAddresses),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubmission(session))
}

// HandleConfirmAddress handles POST /session/{sessionID}/confirm requests.
func (h *Handler) HandleConfirmAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[ConfirmAddressRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.ConfirmAddress(ctx, sessionID, req.Address)
	if err != nil {
		h.logger.ErrorContext(ctx, "address confirmation failed",
			"request_id", requestID,
			"session_id", sessionID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "address confirmed",
		"request_id", requestID,
		"session_id", sessionID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromConfirmation(session))
}

// HandleIssueToken handles POST /token requests.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[TokenRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.IssueAccessToken(ctx, req.ParsedSessionID())
	if err != nil {
		h.logger.ErrorContext(ctx, "token issuance failed",
			"request_id", requestID,
			"session_id", req.SessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "access token issued",
		"request_id", requestID,
		"session_id", req.SessionID,
	)
	httputil.WriteJSON(w, http.StatusOK, &TokenResponse{AccessToken: token, TokenType: "Bearer"})
}

func (h *Handler) sessionIDFromPath(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid session id"))
		return id.SessionID{}, false
	}
	return sessionID, true
}

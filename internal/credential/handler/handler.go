package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"address-cri/internal/credential/models"
	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/platform/httputil"
	"address-cri/pkg/requestcontext"
)

// Service defines the interface for credential operations.
type Service interface {
	IssueForToken(ctx context.Context, accessToken string) (models.VerifiableCredential, string, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credential/issue", h.HandleIssue)
}

// IssueResponse is the response for POST /credential/issue. The credential
// document is returned alongside its signed envelope.
type IssueResponse struct {
	Credential models.VerifiableCredential `json:"credential"`
	Format     string                      `json:"format"`
	JWT        string                      `json:"jwt"`
}

// HandleIssue handles POST /credential/issue requests. The session is
// resolved from the bearer access token; no session id appears in the URL.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	token, err := bearerToken(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	vc, envelope, err := h.service.IssueForToken(ctx, token)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential issuance failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential issued",
		"request_id", requestID,
		"credential_id", vc.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, &IssueResponse{
		Credential: vc,
		Format:     "jwt_vc",
		JWT:        envelope,
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "bearer token required")
	}
	return strings.TrimSpace(token), nil
}

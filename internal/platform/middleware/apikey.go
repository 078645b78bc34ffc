package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/platform/httputil"
	"address-cri/pkg/requestcontext"
	"address-cri/pkg/secrets"
)

// Relying parties authenticate with a per-client API key. Configuration
// carries bcrypt hashes only; raw keys exist solely on the caller's side.
const (
	ClientIDHeader = "X-Client-Id"
	APIKeyHeader   = "X-Api-Key"
)

// APIKeyAuth verifies relying-party credentials against configured hashes.
type APIKeyAuth struct {
	hashes map[string]string
	logger *slog.Logger
}

// NewAPIKeyAuth parses "client-id:bcrypt-hash" entries. Malformed entries are
// skipped so one bad value cannot lock every client out.
func NewAPIKeyAuth(entries []string, logger *slog.Logger) *APIKeyAuth {
	hashes := make(map[string]string, len(entries))
	for _, entry := range entries {
		clientID, hash, ok := strings.Cut(entry, ":")
		if !ok || clientID == "" || hash == "" {
			if logger != nil {
				logger.Warn("skipping malformed api key entry")
			}
			continue
		}
		hashes[clientID] = hash
	}
	return &APIKeyAuth{hashes: hashes, logger: logger}
}

// Require rejects requests without a valid client id and API key pair, and
// stores the authenticated client id in the context for downstream handlers.
func (a *APIKeyAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientID := r.Header.Get(ClientIDHeader)
		apiKey := r.Header.Get(APIKeyHeader)
		if clientID == "" || apiKey == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "client credentials required"))
			return
		}
		hash, ok := a.hashes[clientID]
		if !ok || secrets.Verify(apiKey, hash) != nil {
			if a.logger != nil {
				a.logger.WarnContext(ctx, "rejected client credentials",
					"request_id", requestcontext.RequestID(ctx),
					"client_id", clientID,
				)
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials"))
			return
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithClientID(ctx, clientID)))
	})
}

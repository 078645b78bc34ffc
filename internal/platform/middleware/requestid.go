package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"address-cri/pkg/requestcontext"
)

// RequestIDHeader is honoured when the caller supplies its own request ID.
const RequestIDHeader = "X-Request-Id"

// RequestID injects a request ID into the context and echoes it on the
// response. Handlers and services read it via requestcontext.RequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"net/http"
	"time"

	"address-cri/pkg/requestcontext"
)

// RequestTime pins the request's wall-clock time into the context. Session
// expiry is evaluated against this single timestamp, so one request sees one
// consistent "now".
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"address-cri/pkg/requestcontext"
)

// UnknownDevice is reported when the caller sends no User-Agent header.
const UnknownDevice = "Unknown Device"

// DeviceName condenses a raw User-Agent header into a short display name
// such as "Chrome 120 on Mac OS X". Only the condensed name is carried
// forward; the raw header never reaches logs or audit records.
func DeviceName(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return UnknownDevice
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}
	// Major version only; minor and patch churn adds nothing to an audit trail.
	if idx := strings.Index(version, "."); idx > 0 {
		version = version[:idx]
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	parts := []string{name}
	if version != "" {
		parts = append(parts, version)
	}
	parts = append(parts, "on", os)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Device records the caller's condensed device name in the request context
// so audit events can attribute lifecycle transitions to a device.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), DeviceName(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

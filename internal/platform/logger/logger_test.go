package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := NewWithHandler(slog.NewJSONHandler(&buf, nil))
	return log, &buf
}

func TestRedactsPostcodeInMessage(t *testing.T) {
	log, buf := capture()

	log.Info("lookup failed for SW1A 1AA")

	out := buf.String()
	assert.NotContains(t, out, "SW1A 1AA")
	assert.Contains(t, out, "********")
}

func TestRedactsPostcodeInStringAttrs(t *testing.T) {
	log, buf := capture()

	log.Info("lookup failed", "detail", "no match for EC1A1BB", "attempts", 3)

	out := buf.String()
	assert.NotContains(t, out, "EC1A1BB")
	assert.Contains(t, out, "*******")
	assert.Contains(t, out, `"attempts":3`)
}

func TestRedactsAttrsAddedWithWith(t *testing.T) {
	log, buf := capture()

	log.With("postcode", "M1 1AE").Info("session updated")

	out := buf.String()
	assert.NotContains(t, out, "M1 1AE")
	assert.Contains(t, out, "******")
}

func TestRedactsGroupedAttrs(t *testing.T) {
	log, buf := capture()

	log.Info("submitted", slog.Group("address", slog.String("postcode", "SW1A 1AA"), slog.String("town", "LONDON")))

	out := buf.String()
	assert.NotContains(t, out, "SW1A 1AA")
	assert.Contains(t, out, "LONDON")
}

func TestCleanRecordsPassThrough(t *testing.T) {
	log, buf := capture()

	log.Info("session created", "session_id", "3f2c9a7e-1111-2222-3333-444455556666")

	require.Contains(t, buf.String(), "session created")
	assert.Contains(t, buf.String(), "3f2c9a7e-1111-2222-3333-444455556666")
}

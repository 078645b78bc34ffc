// Package privacy masks postcode-shaped substrings before text reaches any
// log sink. Postal codes are PII and must never be emitted in the clear.
package privacy

import (
	"regexp"
	"strings"
)

// postcodePattern matches the UK postcode shape: one to four alphanumerics,
// a digit, an optional letter, an optional space, then a digit and two
// letters. Case-insensitive so lowercased input is still caught.
var postcodePattern = regexp.MustCompile(`(?i)[A-Z0-9]{1,4}[0-9][A-Z]?\s?[0-9][A-Z]{2}`)

const maskRune = '*'

// Sanitize replaces every postcode-shaped substring in text with an
// equal-length run of mask characters. All other characters, including
// surrounding whitespace, are preserved exactly. Total and idempotent;
// empty input yields the empty string.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return postcodePattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Repeat(string(maskRune), len(match))
	})
}

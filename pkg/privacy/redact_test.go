package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "masks postcode inside free text",
			input: "My address is SW1A 1AA",
			want:  "My address is ********",
		},
		{
			name:  "masks postcode without space",
			input: "postcode=EC1A1BB&key=abc",
			want:  "postcode=*******&key=abc",
		},
		{
			name:  "masks lowercase postcode",
			input: "lookup failed for sw1a 1aa",
			want:  "lookup failed for ********",
		},
		{
			name:  "masks multiple postcodes",
			input: `{"results":[{"POSTCODE":"EC1A 1BB"},{"POSTCODE":"M1 1AE"}]}`,
			want:  `{"results":[{"POSTCODE":"********"},{"POSTCODE":"******"}]}`,
		},
		{
			name:  "empty input yields empty output",
			input: "",
			want:  "",
		},
		{
			name:  "text without postcode shape is unchanged",
			input: "registry returned no results",
			want:  "registry returned no results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"My address is SW1A 1AA",
		"plain text",
		"",
		"B33 8TH and EH1 1YZ",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once))
	}
}

func TestSanitizePreservesLength(t *testing.T) {
	in := "before SW1A 1AA after"
	assert.Len(t, Sanitize(in), len(in))
}

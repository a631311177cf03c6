package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCandidateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   \t ", expected: ""},
		{name: "case and spacing", input: "  Ram  LAL ", expected: "ram lal"},
		{name: "punctuation", input: "Dr. A.K. Singh", expected: "dr ak singh"},
		{name: "hyphen joins tokens", input: "Lal-Bahadur Shastri", expected: "lalbahadur shastri"},
		{name: "underscore kept", input: "ram_lal", expected: "ram_lal"},
		{name: "digits kept", input: "Candidate 2", expected: "candidate 2"},
		{name: "tabs and newlines", input: "Abdul\t\nAsif", expected: "abdul asif"},
		{name: "trailing punctuation", input: "Ram Lal .", expected: "ram lal"},
		{name: "devanagari marks kept", input: "राम लाल", expected: "राम लाल"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCandidateName(tt.input))
		})
	}
}

func TestNormalizeCandidateName_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Abdul Asiph",
		"  MR. Ram   LAL (INC) ",
		"Smt. Sushma-Swaraj!!",
		"राम  लाल।",
		"__x__  y",
	}

	for _, input := range inputs {
		once := NormalizeCandidateName(input)
		assert.Equal(t, once, NormalizeCandidateName(once), "input %q", input)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "x@y.com", NormalizeEmail(" X@Y.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

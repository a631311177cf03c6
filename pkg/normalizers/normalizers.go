// Package normalizers provides the string canonicalization used before any name comparison.
package normalizers

import (
	"strings"
	"unicode"
)

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CollapseWhitespace trims and replaces every run of Unicode whitespace with one space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RemovePunctuation drops every rune that is neither a word character nor whitespace.
// Word characters are letters, combining marks, digits and underscore, so
// Devanagari and other Indic vowel signs survive.
func RemovePunctuation(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if isWordRune(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeCandidateName is the canonical form every candidate name comparison runs on:
// trimmed, lowercased, punctuation removed and whitespace collapsed.
// It is idempotent and maps the empty string to itself.
func NormalizeCandidateName(s string) string {
	if s == "" {
		return ""
	}
	return CollapseWhitespace(RemovePunctuation(strings.ToLower(strings.TrimSpace(s))))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

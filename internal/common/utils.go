package common

import (
	"strings"
	"unicode/utf8"
)

// Normalize lowercases s and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Words splits s on whitespace and keeps words longer than minLen characters.
func Words(s string, minLen int) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if Len(w) > minLen {
			out = append(out, w)
		}
	}
	return out
}

// Len is the length of s in characters rather than bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

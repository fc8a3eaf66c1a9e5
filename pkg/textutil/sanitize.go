// Package textutil holds small text helpers shared by the skill catalog,
// the instruction loader and the selector.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Sanitize drops every byte sequence that is not valid UTF-8, including
// encoded lone surrogates (ED A0..BF xx). Valid input is returned unchanged.
func Sanitize(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

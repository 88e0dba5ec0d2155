package onboarding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minUsernameLength = 6

// ValidEmail is a minimal shape check: a non-empty local part, an @, and a dot in the domain.
func ValidEmail(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}

// ValidUsername accepts "@" followed by text without uppercase letters, at least six
// characters long counting the "@".
func ValidUsername(s string) bool {
	if !strings.HasPrefix(s, "@") {
		return false
	}
	for _, r := range s[1:] {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return utf8.RuneCountInString(s) >= minUsernameLength
}

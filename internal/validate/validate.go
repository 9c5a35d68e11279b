// Package validate rejects junk or placeholder person and company input
// before any write reaches the store.
package validate

import (
	"fmt"
	"strings"
)

// OK is the reason string returned for accepted input.
const OK = "ok"

const minFirstNameLen = 2

// nullLike values are treated as absent wherever a string is persisted.
var nullLike = map[string]struct{}{
	"null": {},
	"none": {},
	"n/a":  {},
}

// blocklist holds names that must never become person or company records:
// service accounts and the furniture nouns the transcript ingester keeps
// mistaking for people. Compared case-insensitively against the full name
// and the first name alone. Null placeholders are not listed here; they get
// their own rejection via IsNullLike.
var blocklist = map[string]struct{}{
	"unknown":         {},
	"test":            {},
	"test test":       {},
	"test user":       {},
	"admin":           {},
	"administrator":   {},
	"root":            {},
	"system":          {},
	"daemon":          {},
	"bot":             {},
	"assistant":       {},
	"mailer-daemon":   {},
	"mailer daemon":   {},
	"postmaster":      {},
	"no-reply":        {},
	"noreply":         {},
	"no reply":        {},
	"do not reply":    {},
	"donotreply":      {},
	"support":         {},
	"info":            {},
	"sales":           {},
	"billing":         {},
	"notifications":   {},
	"calendar":        {},
	"reminder":        {},
	"couch":           {},
	"chair":           {},
	"table":           {},
	"desk":            {},
	"lamp":            {},
	"kitchen":         {},
	"whiteboard":      {},
	"conference room": {},
}

// IsNullLike reports whether value, trimmed and lower-cased, is a null
// placeholder ("null", "none", "n/a").
func IsNullLike(value string) bool {
	_, ok := nullLike[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// ScrubNullString returns "" when value is a null placeholder, and the
// original string (whitespace intact) otherwise.
func ScrubNullString(value string) string {
	if IsNullLike(value) {
		return ""
	}
	return value
}

// ScrubNullPtr applies ScrubNullString through a pointer; nil passes through
// unchanged.
func ScrubNullPtr(value *string) *string {
	if value == nil {
		return nil
	}
	scrubbed := ScrubNullString(*value)
	return &scrubbed
}

// IsBlocklisted reports whether the full name or the first name alone is on
// the blocklist.
func IsBlocklisted(firstName, lastName string) bool {
	first := strings.ToLower(strings.TrimSpace(firstName))
	full := strings.TrimSpace(first + " " + strings.ToLower(strings.TrimSpace(lastName)))
	if _, ok := blocklist[full]; ok {
		return true
	}
	_, ok := blocklist[first]
	return ok
}

// PersonInput validates person creation input. Checks run in order:
// blocklist, null-like first name, first name length, email shape. The
// returned reason is OK on acceptance and a human-readable rejection
// otherwise.
func PersonInput(firstName, lastName, email string) (bool, string) {
	if IsBlocklisted(firstName, lastName) {
		return false, fmt.Sprintf("name %q rejected by blocklist", strings.TrimSpace(firstName+" "+lastName))
	}
	if IsNullLike(firstName) {
		return false, "first name is null-like"
	}
	if len(strings.TrimSpace(firstName)) < minFirstNameLen {
		return false, "first name must be at least 2 characters"
	}
	if email != "" && !strings.Contains(email, "@") {
		return false, "email must contain @"
	}
	return true, OK
}

// CompanyName validates company creation input against the same blocklist.
func CompanyName(name string) (bool, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false, "company name is required"
	}
	if _, ok := blocklist[strings.ToLower(trimmed)]; ok {
		return false, fmt.Sprintf("company name %q rejected by blocklist", trimmed)
	}
	if IsNullLike(trimmed) {
		return false, "company name is null-like"
	}
	return true, OK
}

// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package logging

import (
	"strings"
	"unicode/utf8"
)

// Redacted replaces deny-listed values in sanitized output.
const Redacted = "[REDACTED]"

// deniedKeyFragments are matched case-insensitively against map keys after
// removing "_" and "-". A key containing any fragment is redacted.
var deniedKeyFragments = []string{
	"token",
	"password",
	"passwd",
	"secret",
	"apikey",
	"authorization",
	"bearer",
	"cookie",
	"session",
	"credential",
	"privatekey",
	"email",
	"userid",
}

// IsSensitiveKey reports whether a variable/field name is on the deny-list.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.NewReplacer("_", "", "-", "").Replace(k)
	for _, frag := range deniedKeyFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

// SanitizeVariables returns a deep copy of vars with deny-listed keys
// redacted. Nested maps and slices are walked; the input is never modified.
func SanitizeVariables(vars map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if IsSensitiveKey(k) {
			out[k] = Redacted
			continue
		}
		out[k] = sanitizeAny(v)
	}
	return out
}

func sanitizeAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return SanitizeVariables(t)
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = sanitizeAny(e)
		}
		return cp
	case string:
		return truncateString(t, 200)
	default:
		return v
	}
}

// SanitizeToken masks a token, keeping the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID masks a user ID for privacy.
// Example: "user-12345678" -> "user...5678"
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeLogValue strips control characters from user-supplied strings and
// truncates them, so request parameters cannot forge log lines.
func SanitizeLogValue(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return truncateString(s, 200)
}

// SanitizeError truncates an error message and hides it entirely when it
// looks like it echoes a credential.
func SanitizeError(msg string) string {
	lower := strings.ToLower(msg)
	for _, p := range []string{"password", "secret", "bearer", "authorization", "cookie"} {
		if strings.Contains(lower, p) {
			return "error redacted"
		}
	}
	return truncateString(msg, 300)
}

// truncateString cuts s to at most maxLen bytes on a rune boundary.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

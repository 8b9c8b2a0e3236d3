package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so a subject containing ':' cannot address another subject's counter.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewKey builds the counter key for (scope, subject, action).
func NewKey(scope Scope, subject string, action Action) string {
	return "rl:" + string(scope) + ":" + SanitizeKeySegment(subject) + ":" + string(action)
}

// Package strings normalizes comma-separated configuration lists.
package strings

import "strings"

// CleanList trims every value, applies fold when non-nil, and drops empty
// values and repeats. Order of first occurrence is kept.
func CleanList(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CountryCodes upper-cases ISO country codes.
func CountryCodes(values []string) []string {
	return CleanList(values, strings.ToUpper)
}

// PhonePrefixes keeps dialing-code digits and ensures each prefix starts
// with '+'. "91", "+91" and " + 91" all become "+91".
func PhonePrefixes(values []string) []string {
	return CleanList(values, func(v string) string {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, v)
		if digits == "" {
			return ""
		}
		return "+" + digits
	})
}

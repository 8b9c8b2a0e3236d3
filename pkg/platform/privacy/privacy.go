// Package privacy reduces personal identifiers to log-safe forms.
package privacy

import (
	"encoding/hex"
	"net/netip"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AnonymizeIP zeroes the host part of an address: /24 for IPv4, /48 for IPv6.
// Unparseable input is returned as "invalid".
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "invalid"
	}
	bits := 24
	if addr.Is6() && !addr.Is4In6() {
		bits = 48
	}
	prefix, err := addr.Unmap().Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// Fingerprint returns a short, stable, non-reversible token for an identifier.
func Fingerprint(value string) string {
	sum := blake2b.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}

// HashPhone fingerprints a phone number for logs.
func HashPhone(phone string) string {
	return Fingerprint(strings.TrimSpace(phone))
}

// MaskPhone keeps the country prefix and the last two digits.
func MaskPhone(phone string) string {
	if len(phone) <= 5 {
		return "***"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}

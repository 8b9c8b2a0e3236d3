package models

import "time"

// IPReputation is the outcome of an IP lookup.
type IPReputation struct {
	IP          string
	IsVPN       bool
	IsTor       bool
	IsProxy     bool
	CountryCode string
	// Skipped is set for private or loopback addresses that were not looked up.
	Skipped bool
}

// Anonymizing reports whether the address hides the real client.
func (r *IPReputation) Anonymizing() bool {
	return r.IsVPN || r.IsTor || r.IsProxy
}

// IdentityClaims are the verified contents of an identity token.
type IdentityClaims struct {
	UserID   UserID
	Phone    string
	IssuedAt time.Time
}

package models

import "strings"

// SeverityLevel is the totally ordered risk level of a finding or bucket.
type SeverityLevel string

const (
	SeverityNone   SeverityLevel = "none"
	SeverityLow    SeverityLevel = "low"
	SeverityMedium SeverityLevel = "medium"
	SeverityHigh   SeverityLevel = "high"
)

// Rank returns the position of s in the order none < low < medium < high.
// Unrecognised values rank as none.
func (s SeverityLevel) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// WorseThan reports whether s ranks strictly above other.
func (s SeverityLevel) WorseThan(other SeverityLevel) bool {
	return s.Rank() > other.Rank()
}

// MaxSeverity returns the worse of a and b. Ties return a.
func MaxSeverity(a, b SeverityLevel) SeverityLevel {
	if b.WorseThan(a) {
		return b
	}
	return a
}

// SeverityFor maps a finding kind to its fixed severity.
func SeverityFor(kind FindingKind) SeverityLevel {
	switch kind {
	case FindingPublicAccessBlockDisabled, FindingPublicACL:
		return SeverityHigh
	case FindingWildcardPolicy, FindingNoPolicy, FindingNoEncryption:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AggregateSeverity returns the maximum severity over findings, or
// SeverityNone for an empty slice.
func AggregateSeverity(findings []Finding) SeverityLevel {
	sev := SeverityNone
	for _, f := range findings {
		sev = MaxSeverity(sev, f.Severity())
	}
	return sev
}

// ParseSeverity maps a case-insensitive severity name to its level.
func ParseSeverity(s string) (SeverityLevel, bool) {
	switch lvl := SeverityLevel(strings.ToLower(strings.TrimSpace(s))); lvl {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh:
		return lvl, true
	}
	return "", false
}

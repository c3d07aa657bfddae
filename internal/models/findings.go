package models

// FindingKind identifies which control a bucket failed.
type FindingKind string

const (
	FindingPublicAccessBlockDisabled FindingKind = "PublicAccessBlockDisabled"
	FindingPublicACL                 FindingKind = "PublicACL"
	FindingWildcardPolicy            FindingKind = "WildcardPolicy"
	FindingNoPolicy                  FindingKind = "NoPolicy"
	FindingNoEncryption              FindingKind = "NoEncryption"
)

// Finding is a single misconfiguration detected on a bucket.
// It is the atomic output unit of the inspection checks.
type Finding struct {
	Type    FindingKind `json:"type"`
	Details string      `json:"details"`
}

// Severity returns the fixed severity contributed by this finding's kind.
func (f Finding) Severity() SeverityLevel {
	return SeverityFor(f.Type)
}

// BucketRecord is the scan outcome for one bucket. Records are built once per
// bucket per scan and never modified afterwards.
//
// A skipped record always has an empty Findings slice and SeverityNone.
type BucketRecord struct {
	Name     string        `json:"name"`
	Findings []Finding     `json:"findings"`
	Severity SeverityLevel `json:"severity"`
	Skipped  bool          `json:"skipped"`
}

// NewBucketRecord builds a record for an inspected bucket. Severity is derived
// from findings and is SeverityNone when findings is empty.
func NewBucketRecord(name string, findings []Finding) BucketRecord {
	if findings == nil {
		findings = []Finding{}
	}
	return BucketRecord{
		Name:     name,
		Findings: findings,
		Severity: AggregateSeverity(findings),
	}
}

// NewSkippedRecord builds the record emitted for an excluded bucket.
func NewSkippedRecord(name string) BucketRecord {
	return BucketRecord{
		Name:     name,
		Findings: []Finding{},
		Severity: SeverityNone,
		Skipped:  true,
	}
}

// HasFinding reports whether the record contains a finding of kind k.
func (r BucketRecord) HasFinding(k FindingKind) bool {
	for _, f := range r.Findings {
		if f.Type == k {
			return true
		}
	}
	return false
}

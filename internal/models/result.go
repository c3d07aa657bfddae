package models

import "encoding/json"

// ActionKind names a corrective action applied by the remediation engine.
type ActionKind string

const (
	ActionRemovedPublicACL         ActionKind = "removed_public_acl"
	ActionEnabledPublicAccessBlock ActionKind = "enabled_public_access_block"
	ActionRemovedWildcardPolicy    ActionKind = "removed_wildcard_policy"
	ActionEnabledEncryption        ActionKind = "enabled_encryption"

	// Rule-directed actions, requested by name rather than derived from a
	// finding.
	ActionEnabledVersioning ActionKind = "enabled_versioning"
	ActionEnforcedSSL       ActionKind = "enforced_ssl_requests_only"
	ActionEnabledLogging    ActionKind = "enabled_access_logging"
)

// FixStatus is the outcome of a single remediation attempt.
type FixStatus string

const (
	FixSuccess FixStatus = "success"
	FixSkipped FixStatus = "skipped"
	FixFailed  FixStatus = "failed"
)

// FixOutcome records what happened when one finding on one bucket was
// remediated. Reason is set for skipped and failed outcomes.
type FixOutcome struct {
	Bucket string     `json:"bucket"`
	Action ActionKind `json:"action"`
	Status FixStatus  `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// ScanSummary aggregates bucket counts for a scan.
type ScanSummary struct {
	TotalBuckets int `json:"total_buckets"`
	HighRisk     int `json:"high_risk"`
}

// ScanError is embedded in a ScanResult when the scan could not run at all.
type ScanError struct {
	Message string `json:"message"`
}

// ScanResult is the structured output of one invocation. It is handed whole
// to archive, audit log and report collaborators.
//
// Fixes is nil when remediation did not run and non-nil (possibly empty) when
// it did; the JSON form carries a "fixes" key only in the latter case.
type ScanResult struct {
	Summary ScanSummary
	Buckets []BucketRecord
	Fixes   []FixOutcome
	Error   *ScanError
}

// scanResultJSON is the wire shape of ScanResult.
type scanResultJSON struct {
	Summary ScanSummary    `json:"summary"`
	Buckets []BucketRecord `json:"buckets"`
	Fixes   *[]FixOutcome  `json:"fixes,omitempty"`
	Error   *ScanError     `json:"error,omitempty"`
}

// Failed reports whether the scan hit the fatal listing path.
func (r *ScanResult) Failed() bool {
	return r.Error != nil
}

// Remediated reports whether remediation ran for this result.
func (r *ScanResult) Remediated() bool {
	return r.Fixes != nil
}

// MarshalJSON implements json.Marshaler.
func (r ScanResult) MarshalJSON() ([]byte, error) {
	out := scanResultJSON{
		Summary: r.Summary,
		Buckets: r.Buckets,
		Error:   r.Error,
	}
	if out.Buckets == nil {
		out.Buckets = []BucketRecord{}
	}
	if r.Fixes != nil {
		fixes := r.Fixes
		out.Fixes = &fixes
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. A "fixes" key, even an empty
// array, yields a non-nil Fixes slice.
func (r *ScanResult) UnmarshalJSON(data []byte) error {
	var in scanResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Summary = in.Summary
	r.Buckets = in.Buckets
	r.Error = in.Error
	r.Fixes = nil
	if in.Fixes != nil {
		r.Fixes = *in.Fixes
		if r.Fixes == nil {
			r.Fixes = []FixOutcome{}
		}
	}
	return nil
}

// FixTally counts remediation outcomes by status.
type FixTally struct {
	Fixed   int `json:"fixed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// NeedsAttention is the number of outcomes a human has to follow up on.
func (t FixTally) NeedsAttention() int {
	return t.Skipped + t.Failed
}

// AccountResult pairs a ScanResult with the account it was produced for.
type AccountResult struct {
	AccountID string     `json:"account_id"`
	Result    ScanResult `json:"result"`
}

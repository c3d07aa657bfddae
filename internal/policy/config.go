package policy

// ScanConfig is the remediation config file. It decides which buckets a run
// may touch and, optionally, which accounts a multi-account run covers.
type ScanConfig struct {
	Version int `yaml:"version" json:"-"`

	// ExcludeBuckets are reported as skipped and never inspected or remediated.
	ExcludeBuckets []string `yaml:"exclude_buckets" json:"exclude_buckets"`

	// IncludeBuckets, when non-empty, restricts the run to these names.
	// Buckets outside the list are left out of the result entirely.
	IncludeBuckets []string `yaml:"include_buckets,omitempty" json:"include_buckets,omitempty"`

	// Accounts lists the member accounts for multi-account runs.
	Accounts []string `yaml:"accounts,omitempty" json:"accounts,omitempty"`

	// FailOnSeverity makes the CLI exit non-zero when any bucket reaches it.
	FailOnSeverity string `yaml:"fail_on_severity,omitempty" json:"-"`
}

// Excluded reports whether bucket is on the exclusion list.
func (c *ScanConfig) Excluded(bucket string) bool {
	if c == nil {
		return false
	}
	return contains(c.ExcludeBuckets, bucket)
}

// Included reports whether bucket passes the include filter. An empty
// include list admits every bucket.
func (c *ScanConfig) Included(bucket string) bool {
	if c == nil || len(c.IncludeBuckets) == 0 {
		return true
	}
	return contains(c.IncludeBuckets, bucket)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package models

import "strings"

// LookupState distinguishes the three outcomes of a per-bucket read.
type LookupState int

const (
	// LookupPresent means the configuration exists and Value holds it.
	LookupPresent LookupState = iota
	// LookupAbsent means the service reported the configuration as not set.
	// Absence is informative and is not an error.
	LookupAbsent
	// LookupFailed means the read itself failed (access denied, throttling,
	// malformed response). Err holds the cause.
	LookupFailed
)

func (s LookupState) String() string {
	switch s {
	case LookupPresent:
		return "present"
	case LookupAbsent:
		return "absent"
	default:
		return "failed"
	}
}

// Lookup is the tri-state result of reading one bucket configuration.
type Lookup[T any] struct {
	State LookupState
	Value T
	Err   error
}

// Present wraps a configuration value that exists.
func Present[T any](v T) Lookup[T] {
	return Lookup[T]{State: LookupPresent, Value: v}
}

// Absent reports a configuration that is not set.
func Absent[T any]() Lookup[T] {
	return Lookup[T]{State: LookupAbsent}
}

// Failed reports a read that could not be completed.
func Failed[T any](err error) Lookup[T] {
	return Lookup[T]{State: LookupFailed, Err: err}
}

// PublicAccessBlock mirrors the four bucket-level block flags. A nil-valued
// flag in the SDK response is represented as false.
type PublicAccessBlock struct {
	BlockPublicAcls       bool `json:"block_public_acls"`
	IgnorePublicAcls      bool `json:"ignore_public_acls"`
	BlockPublicPolicy     bool `json:"block_public_policy"`
	RestrictPublicBuckets bool `json:"restrict_public_buckets"`
}

// DisabledFlags returns the names of the flags that are not enabled, in the
// order the S3 API documents them.
func (p PublicAccessBlock) DisabledFlags() []string {
	var off []string
	if !p.BlockPublicAcls {
		off = append(off, "BlockPublicAcls")
	}
	if !p.IgnorePublicAcls {
		off = append(off, "IgnorePublicAcls")
	}
	if !p.BlockPublicPolicy {
		off = append(off, "BlockPublicPolicy")
	}
	if !p.RestrictPublicBuckets {
		off = append(off, "RestrictPublicBuckets")
	}
	return off
}

// AllUsersGroupURI identifies the anonymous "everyone" grantee group.
const AllUsersGroupURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// Grant is one ACL entry on a bucket or object.
type Grant struct {
	GranteeType string `json:"grantee_type"`
	URI         string `json:"uri,omitempty"`
	ID          string `json:"id,omitempty"`
	Permission  string `json:"permission"`
}

// IsPublic reports whether the grant is made to the AllUsers group.
func (g Grant) IsPublic() bool {
	return strings.EqualFold(g.GranteeType, "Group") && strings.HasSuffix(g.URI, "/AllUsers")
}

// PublicGrants returns the grants in grants that target AllUsers.
func PublicGrants(grants []Grant) []Grant {
	var out []Grant
	for _, g := range grants {
		if g.IsPublic() {
			out = append(out, g)
		}
	}
	return out
}

// BucketPosture is the raw security configuration collected for one bucket.
// Each field is read independently; a failed read never hides the others.
type BucketPosture struct {
	Name              string
	PublicAccessBlock Lookup[PublicAccessBlock]
	ACL               Lookup[[]Grant]
	// Policy holds the raw bucket policy JSON document.
	Policy Lookup[string]
	// Encryption holds the SSE algorithms of the default encryption rules.
	Encryption Lookup[[]string]
}

// Package hipaa provides the HIPAA S3 posture rule pack.
// It groups the bucket checks into a single New() function that the engine
// wires into a DefaultRuleRegistry before inspecting buckets.
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule.
// Order matters: findings are reported in the order the rules are listed.
package hipaa

import "github.com/pankaj-dahiya-devops/phiguard/internal/rules"

// New returns the HIPAA bucket posture rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.S3PublicAccessBlockRule{},        // HIGH:   public access block missing or partial
		rules.S3PublicACLRule{},                // HIGH:   ACL grants AllUsers
		rules.S3BucketPolicyRule{},             // MEDIUM: wildcard policy, or no policy at all
		rules.S3DefaultEncryptionMissingRule{}, // MEDIUM: no default encryption
	}
}

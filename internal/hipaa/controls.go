// Package hipaa maps posture findings to the HIPAA Security Rule
// (45 CFR Part 164) safeguards they violate, with the plain-English risk and
// the AWS CLI command that closes the gap.
package hipaa

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// Control describes the safeguard behind one finding kind.
type Control struct {
	// ID is the CFR citation, e.g. "164.312(a)(2)(iv)".
	ID string
	// Safeguard is the short name and requirement of the control.
	Safeguard string
	// Risk explains the exposure in plain English.
	Risk string

	fix string
}

// FixCommand returns the AWS CLI command remediating bucket.
func (c Control) FixCommand(bucket string) string {
	if c.fix == "" {
		return "Manual review required"
	}
	return fmt.Sprintf(c.fix, bucket)
}

const (
	accessControl = "164.308(a)(3)(i)"
	accessMgmt    = "164.308(a)(4)"
	encryption    = "164.312(a)(2)(iv)"
)

var catalogue = map[models.FindingKind]Control{
	models.FindingPublicAccessBlockDisabled: {
		ID:        accessControl,
		Safeguard: "Access Control - Implement policies to limit access to PHI",
		Risk:      "Nothing stops a future ACL or policy change from making PHI readable by anyone on the internet.",
		fix:       "aws s3api put-public-access-block --bucket %s --public-access-block-configuration BlockPublicAcls=true,IgnorePublicAcls=true,BlockPublicPolicy=true,RestrictPublicBuckets=true",
	},
	models.FindingPublicACL: {
		ID:        accessControl,
		Safeguard: "Access Control - Implement policies to limit access to PHI",
		Risk:      "The bucket ACL grants access to everyone; PHI stored here can be listed or read without credentials.",
		fix:       "aws s3api put-bucket-acl --bucket %s --acl private",
	},
	models.FindingWildcardPolicy: {
		ID:        accessMgmt,
		Safeguard: "Information Access Management - Implement policies for PHI access",
		Risk:      "A policy statement applies to any principal or any action, so access to PHI is not limited to the workforce that needs it.",
		fix:       "aws s3api get-bucket-policy --bucket %s --query Policy --output text  # remove statements with Principal \"*\", then put-bucket-policy",
	},
	models.FindingNoPolicy: {
		ID:        accessMgmt,
		Safeguard: "Information Access Management - Implement policies for PHI access",
		Risk:      "No bucket policy restricts who may access PHI; access depends entirely on IAM and ACLs.",
		fix:       "aws s3api put-bucket-policy --bucket %s --policy file://policy.json",
	},
	models.FindingNoEncryption: {
		ID:        encryption,
		Safeguard: "Encryption - Implement encryption for PHI at rest",
		Risk:      "New objects are stored unencrypted; a leaked object exposes PHI in the clear.",
		fix:       "aws s3api put-bucket-encryption --bucket %s --server-side-encryption-configuration '{\"Rules\":[{\"ApplyServerSideEncryptionByDefault\":{\"SSEAlgorithm\":\"AES256\"},\"BucketKeyEnabled\":true}]}'",
	},
}

// Lookup returns the control for kind. Unknown kinds get a placeholder
// control with ID "N/A" and no fix command.
func Lookup(kind models.FindingKind) Control {
	if c, ok := catalogue[kind]; ok {
		return c
	}
	return Control{
		ID:        "N/A",
		Safeguard: "HIPAA Security Rule Requirement",
		Risk:      "Manual review required",
	}
}

// ViolationsByControl counts findings per control ID across records.
// Skipped buckets contribute nothing.
func ViolationsByControl(records []models.BucketRecord) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		if r.Skipped {
			continue
		}
		for _, f := range r.Findings {
			out[Lookup(f.Type).ID]++
		}
	}
	return out
}

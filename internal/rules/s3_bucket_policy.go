package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/phiguard/internal/bucketpolicy"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// S3BucketPolicyRule covers both policy outcomes of a single lookup: a
// present policy is tested for wildcard principals and wildcard service
// actions, an absent policy is reported as NoPolicy. The wildcard test is
// never attempted on an absent policy.
type S3BucketPolicyRule struct{}

func (r S3BucketPolicyRule) ID() string   { return "S3_BUCKET_POLICY" }
func (r S3BucketPolicyRule) Name() string { return "S3 Bucket Policy Wildcard Or Missing" }

func (r S3BucketPolicyRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Posture == nil {
		return nil
	}
	lookup := ctx.Posture.Policy
	switch lookup.State {
	case models.LookupAbsent:
		return []models.Finding{{
			Type:    models.FindingNoPolicy,
			Details: "No bucket policy configured",
		}}
	case models.LookupPresent:
		doc, err := bucketpolicy.Parse(lookup.Value)
		if err != nil {
			// Unparseable documents are reported by the inspector via
			// PolicyParseError; no finding is invented here.
			return nil
		}
		wild := doc.WildcardStatements()
		if len(wild) == 0 {
			return nil
		}
		return []models.Finding{{
			Type:    models.FindingWildcardPolicy,
			Details: fmt.Sprintf("Found %d statement(s) with wildcard principal and/or wildcard action", len(wild)),
		}}
	}
	return nil
}

// PolicyParseError returns the parse error of a present policy document, or
// nil when the policy is absent, failed or well formed.
func PolicyParseError(p *models.BucketPosture) error {
	if p == nil || p.Policy.State != models.LookupPresent {
		return nil
	}
	_, err := bucketpolicy.Parse(p.Policy.Value)
	return err
}

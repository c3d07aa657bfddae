package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// S3PublicACLRule flags buckets whose ACL grants any permission to the
// AllUsers group.
type S3PublicACLRule struct{}

func (r S3PublicACLRule) ID() string   { return "S3_PUBLIC_ACL" }
func (r S3PublicACLRule) Name() string { return "S3 Bucket ACL Grants Public Access" }

func (r S3PublicACLRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Posture == nil || ctx.Posture.ACL.State != models.LookupPresent {
		return nil
	}
	public := models.PublicGrants(ctx.Posture.ACL.Value)
	if len(public) == 0 {
		return nil
	}
	return []models.Finding{{
		Type:    models.FindingPublicACL,
		Details: fmt.Sprintf("Found %d public grants", len(public)),
	}}
}

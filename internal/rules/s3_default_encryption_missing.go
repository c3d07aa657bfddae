package rules

import (
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// S3DefaultEncryptionMissingRule flags buckets with no default server-side
// encryption configuration. Unencrypted PHI at rest fails the HIPAA
// encryption and decryption specification.
type S3DefaultEncryptionMissingRule struct{}

func (r S3DefaultEncryptionMissingRule) ID() string {
	return "S3_DEFAULT_ENCRYPTION_MISSING"
}

func (r S3DefaultEncryptionMissingRule) Name() string {
	return "S3 Bucket Default Encryption Missing"
}

func (r S3DefaultEncryptionMissingRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Posture == nil || ctx.Posture.Encryption.State != models.LookupAbsent {
		return nil
	}
	return []models.Finding{{
		Type:    models.FindingNoEncryption,
		Details: "Default encryption not configured",
	}}
}

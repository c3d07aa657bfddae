package rules

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// S3PublicAccessBlockRule flags buckets that do not have all four public
// access block settings enabled. A bucket with no configuration at all has
// every flag unset and is flagged as well.
type S3PublicAccessBlockRule struct{}

func (r S3PublicAccessBlockRule) ID() string   { return "S3_PUBLIC_ACCESS_BLOCK_DISABLED" }
func (r S3PublicAccessBlockRule) Name() string { return "S3 Public Access Block Disabled" }

// Evaluate returns one PublicAccessBlockDisabled finding listing the
// disabled flags.
func (r S3PublicAccessBlockRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Posture == nil {
		return nil
	}
	lookup := ctx.Posture.PublicAccessBlock
	switch lookup.State {
	case models.LookupAbsent:
		return []models.Finding{{
			Type:    models.FindingPublicAccessBlockDisabled,
			Details: "No public access block configuration",
		}}
	case models.LookupPresent:
		off := lookup.Value.DisabledFlags()
		if len(off) == 0 {
			return nil
		}
		return []models.Finding{{
			Type:    models.FindingPublicAccessBlockDisabled,
			Details: fmt.Sprintf("Disabled settings: %s", strings.Join(off, ", ")),
		}}
	}
	return nil
}

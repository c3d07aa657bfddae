package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/rules"
)

// Inspector turns one bucket into a BucketRecord.
type Inspector struct {
	reader   PostureReader
	registry rules.RuleRegistry
	log      zerolog.Logger
}

// NewInspector returns an Inspector reading posture from reader and
// evaluating it with registry.
func NewInspector(reader PostureReader, registry rules.RuleRegistry, log zerolog.Logger) *Inspector {
	return &Inspector{reader: reader, registry: registry, log: log}
}

// Inspect collects the bucket's posture and evaluates every rule against it.
// Failed lookups are logged and contribute no findings.
func (i *Inspector) Inspect(ctx context.Context, bucket string) models.BucketRecord {
	posture := i.reader.CollectPosture(ctx, bucket)
	i.logFailures(&posture)
	findings := i.registry.EvaluateAll(rules.RuleContext{Posture: &posture})
	return models.NewBucketRecord(bucket, findings)
}

func (i *Inspector) logFailures(p *models.BucketPosture) {
	checks := []struct {
		name  string
		state models.LookupState
		err   error
	}{
		{"public_access_block", p.PublicAccessBlock.State, p.PublicAccessBlock.Err},
		{"acl", p.ACL.State, p.ACL.Err},
		{"policy", p.Policy.State, p.Policy.Err},
		{"encryption", p.Encryption.State, p.Encryption.Err},
	}
	for _, c := range checks {
		if c.state != models.LookupFailed {
			continue
		}
		i.log.Warn().Err(c.err).Str("bucket", p.Name).Str("check", c.name).Msg("check skipped")
	}
	if err := rules.PolicyParseError(p); err != nil {
		i.log.Warn().Err(err).Str("bucket", p.Name).Str("check", "policy").Msg("check skipped: unparseable policy")
	}
}

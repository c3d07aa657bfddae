package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/remediation"
	"github.com/pankaj-dahiya-devops/phiguard/internal/rules"
)

// Runner executes a Request against one account's Storage.
type Runner struct {
	orchestrator *Orchestrator
	remediator   *remediation.Engine
	log          zerolog.Logger
}

// NewRunner wires an Orchestrator and a remediation Engine over store.
func NewRunner(store Storage, registry rules.RuleRegistry, log zerolog.Logger) *Runner {
	inspector := NewInspector(store, registry, log)
	return &Runner{
		orchestrator: NewOrchestrator(store, inspector, log),
		remediator:   remediation.New(store, log),
		log:          log,
	}
}

// Run scans and, when the request mutates, remediates: the request's Actions
// when it names any, the findings otherwise. It never fails: a fatal listing
// error is carried in the result's Error field.
func (r *Runner) Run(ctx context.Context, req Request) *models.ScanResult {
	records, err := r.orchestrator.Scan(ctx, req.Config)
	if err != nil {
		r.log.Error().Err(err).Msg("scan aborted")
		return &models.ScanResult{
			Buckets: []models.BucketRecord{},
			Error:   &models.ScanError{Message: err.Error()},
		}
	}

	result := &models.ScanResult{
		Summary: Summarize(records),
		Buckets: records,
	}
	r.log.Info().
		Int("total_buckets", result.Summary.TotalBuckets).
		Int("high_risk", result.Summary.HighRisk).
		Msg("scan complete")

	if !req.Mutates() {
		return result
	}
	if len(req.Actions) > 0 {
		result.Fixes = r.remediator.ApplyActions(ctx, records, req.Actions)
	} else {
		result.Fixes = r.remediator.Remediate(ctx, records)
	}
	tally := TallyFixes(result.Fixes)
	r.log.Info().
		Int("fixed", tally.Fixed).
		Int("skipped", tally.Skipped).
		Int("failed", tally.Failed).
		Msg("remediation complete")
	return result
}

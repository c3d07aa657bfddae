package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/policy"
)

// Orchestrator walks every bucket in an account.
type Orchestrator struct {
	lister    BucketLister
	inspector *Inspector
	log       zerolog.Logger
}

// NewOrchestrator returns an Orchestrator listing through lister.
func NewOrchestrator(lister BucketLister, inspector *Inspector, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{lister: lister, inspector: inspector, log: log}
}

// Scan returns one record per bucket in listing order. Excluded buckets are
// reported as skipped without being inspected; when cfg has an include list,
// buckets outside it are left out. A listing failure is fatal.
func (o *Orchestrator) Scan(ctx context.Context, cfg *policy.ScanConfig) ([]models.BucketRecord, error) {
	names, err := o.lister.ListBucketNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate buckets: %w", err)
	}

	records := make([]models.BucketRecord, 0, len(names))
	for _, name := range names {
		switch {
		case cfg.Excluded(name):
			o.log.Debug().Str("bucket", name).Msg("excluded")
			records = append(records, models.NewSkippedRecord(name))
		case !cfg.Included(name):
			continue
		default:
			records = append(records, o.inspector.Inspect(ctx, name))
		}
	}
	return records, nil
}

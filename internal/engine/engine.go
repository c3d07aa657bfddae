// Package engine drives a scan: it lists buckets, inspects each one against
// the registered rules and, when asked, hands the results to the remediation
// engine. It never calls the AWS SDK directly; all calls go through Storage.
package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/policy"
	"github.com/pankaj-dahiya-devops/phiguard/internal/remediation"
)

// Request is the canonical input of one run, whatever the invocation shape.
type Request struct {
	// Config selects the buckets to scan. Nil scans everything.
	Config *policy.ScanConfig

	// Remediate asks for corrective actions on eligible buckets.
	Remediate bool

	// DryRun suppresses every mutating call. It wins over Remediate.
	DryRun bool

	// AccountID targets a single account for event-driven runs. Empty means
	// the caller's own account.
	AccountID string

	// Actions, when set, replaces finding-driven remediation: exactly these
	// actions run on every scanned bucket.
	Actions []models.ActionKind
}

// Mutates reports whether the request will change bucket configuration.
func (r Request) Mutates() bool {
	return r.Remediate && !r.DryRun
}

// BucketLister enumerates bucket names in listing order.
type BucketLister interface {
	ListBucketNames(ctx context.Context) ([]string, error)
}

// PostureReader collects the raw configuration of one bucket.
type PostureReader interface {
	CollectPosture(ctx context.Context, bucket string) models.BucketPosture
}

// Storage is everything a run needs from one account's S3.
// *awss3.Store satisfies it.
type Storage interface {
	BucketLister
	PostureReader
	remediation.Store
}

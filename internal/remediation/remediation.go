// Package remediation applies corrective actions to buckets that failed the
// posture checks. Every action is idempotent: re-running it on an already
// fixed bucket leaves the bucket unchanged.
package remediation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/bucketpolicy"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// ObjectSampleSize is how many objects are checked for public ACLs before
// the bucket ACL is made private.
const ObjectSampleSize = 100

// LogBucketSuffix is appended to a bucket name to form its access log
// bucket.
const LogBucketSuffix = "-logs"

// Skip reasons reported in FixOutcome.Reason.
const (
	ReasonPublicObjects = "objects with public ACLs detected - manual review required"
	ReasonPolicyKept    = "no changes or complex policy"
	ReasonPolicyInvalid = "existing policy not parseable - manual review required"
	ReasonSSLEnforced   = "insecure transport already denied"
	ReasonNotRemediable = "no automatic remediation"
)

// Store is the subset of the S3 capability layer remediation needs.
// *awss3.Store satisfies it.
type Store interface {
	ListObjectKeys(ctx context.Context, bucket string, limit int32) ([]string, error)
	ObjectGrants(ctx context.Context, bucket, key string) ([]models.Grant, error)
	SetPrivateACL(ctx context.Context, bucket string) error
	BlockPublicAccess(ctx context.Context, bucket string) error
	BucketPolicy(ctx context.Context, bucket string) models.Lookup[string]
	PutPolicy(ctx context.Context, bucket, doc string) error
	DeletePolicy(ctx context.Context, bucket string) error
	EnableDefaultEncryption(ctx context.Context, bucket string) error
	EnableVersioning(ctx context.Context, bucket string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucketNear(ctx context.Context, bucket, near string) error
	EnableAccessLogging(ctx context.Context, bucket, target, prefix string) error
}

// priority is the order in which findings on one bucket are handled.
// NoPolicy has no automatic action.
var priority = []models.FindingKind{
	models.FindingPublicACL,
	models.FindingPublicAccessBlockDisabled,
	models.FindingWildcardPolicy,
	models.FindingNoEncryption,
}

// remedies maps each finding to the action that clears it.
var remedies = map[models.FindingKind]models.ActionKind{
	models.FindingPublicACL:                 models.ActionRemovedPublicACL,
	models.FindingPublicAccessBlockDisabled: models.ActionEnabledPublicAccessBlock,
	models.FindingWildcardPolicy:            models.ActionRemovedWildcardPolicy,
	models.FindingNoEncryption:              models.ActionEnabledEncryption,
}

// Engine remediates bucket records through a Store.
type Engine struct {
	store Store
	log   zerolog.Logger
}

// New returns an Engine acting on store.
func New(store Store, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Eligible reports whether rec is a candidate for remediation: not skipped
// and of medium or high severity.
func Eligible(rec models.BucketRecord) bool {
	if rec.Skipped {
		return false
	}
	return rec.Severity == models.SeverityHigh || rec.Severity == models.SeverityMedium
}

// Remediate fixes every eligible record and returns one outcome per
// attempted action, in bucket order then priority order. The result is never
// nil. A failing action is recorded and processing moves on.
func (e *Engine) Remediate(ctx context.Context, records []models.BucketRecord) []models.FixOutcome {
	fixes := []models.FixOutcome{}
	for _, rec := range records {
		if !Eligible(rec) {
			continue
		}
		for _, kind := range priority {
			if !rec.HasFinding(kind) {
				continue
			}
			out := e.Apply(ctx, rec.Name, remedies[kind])
			e.logOutcome(out)
			fixes = append(fixes, out)
		}
	}
	return fixes
}

// ApplyActions runs actions, in the given order, on every record that was
// not skipped, whatever its findings. It serves rule-directed requests where
// the caller already knows what is wrong. The result is never nil.
func (e *Engine) ApplyActions(ctx context.Context, records []models.BucketRecord, actions []models.ActionKind) []models.FixOutcome {
	fixes := []models.FixOutcome{}
	for _, rec := range records {
		if rec.Skipped {
			continue
		}
		for _, action := range actions {
			out := e.Apply(ctx, rec.Name, action)
			e.logOutcome(out)
			fixes = append(fixes, out)
		}
	}
	return fixes
}

// Apply performs one action on bucket. Unknown actions are skipped.
func (e *Engine) Apply(ctx context.Context, bucket string, action models.ActionKind) models.FixOutcome {
	switch action {
	case models.ActionRemovedPublicACL:
		return e.fixPublicACL(ctx, bucket)
	case models.ActionEnabledPublicAccessBlock:
		return outcome(bucket, action, e.store.BlockPublicAccess(ctx, bucket))
	case models.ActionRemovedWildcardPolicy:
		return e.fixWildcardPolicy(ctx, bucket)
	case models.ActionEnabledEncryption:
		return outcome(bucket, action, e.store.EnableDefaultEncryption(ctx, bucket))
	case models.ActionEnabledVersioning:
		return outcome(bucket, action, e.store.EnableVersioning(ctx, bucket))
	case models.ActionEnforcedSSL:
		return e.enforceSSL(ctx, bucket)
	case models.ActionEnabledLogging:
		return e.enableLogging(ctx, bucket)
	default:
		return skipped(bucket, action, ReasonNotRemediable)
	}
}

// fixPublicACL makes the bucket ACL private unless one of the first
// ObjectSampleSize objects carries a public grant of its own.
func (e *Engine) fixPublicACL(ctx context.Context, bucket string) models.FixOutcome {
	keys, err := e.store.ListObjectKeys(ctx, bucket, ObjectSampleSize)
	if err != nil {
		return failed(bucket, models.ActionRemovedPublicACL, err)
	}
	for _, key := range keys {
		grants, err := e.store.ObjectGrants(ctx, bucket, key)
		if err != nil {
			e.log.Debug().Err(err).Str("bucket", bucket).Str("key", key).Msg("object ACL unreadable; not counted")
			continue
		}
		if len(models.PublicGrants(grants)) > 0 {
			return skipped(bucket, models.ActionRemovedPublicACL, ReasonPublicObjects)
		}
	}
	return outcome(bucket, models.ActionRemovedPublicACL, e.store.SetPrivateACL(ctx, bucket))
}

// fixWildcardPolicy re-reads the policy and drops statements whose
// Principal is exactly "*". Anything else is left for a human.
func (e *Engine) fixWildcardPolicy(ctx context.Context, bucket string) models.FixOutcome {
	const action = models.ActionRemovedWildcardPolicy

	current := e.store.BucketPolicy(ctx, bucket)
	switch current.State {
	case models.LookupFailed:
		return failed(bucket, action, current.Err)
	case models.LookupAbsent:
		return skipped(bucket, action, ReasonPolicyKept)
	}

	doc, err := bucketpolicy.Parse(current.Value)
	if err != nil {
		e.log.Warn().Err(err).Str("bucket", bucket).Msg("bucket policy not parseable")
		return skipped(bucket, action, ReasonPolicyKept)
	}
	stripped := doc.WithoutStarPrincipal()
	if stripped.Len() >= doc.Len() {
		return skipped(bucket, action, ReasonPolicyKept)
	}
	if stripped.Len() == 0 {
		return outcome(bucket, action, e.store.DeletePolicy(ctx, bucket))
	}
	body, err := stripped.Marshal()
	if err != nil {
		return failed(bucket, action, err)
	}
	return outcome(bucket, action, e.store.PutPolicy(ctx, bucket, body))
}

// enforceSSL adds a statement denying non-TLS requests to the bucket policy,
// creating the policy when there is none. Existing statements are kept.
func (e *Engine) enforceSSL(ctx context.Context, bucket string) models.FixOutcome {
	const action = models.ActionEnforcedSSL

	current := e.store.BucketPolicy(ctx, bucket)
	doc := bucketpolicy.Empty()
	switch current.State {
	case models.LookupFailed:
		return failed(bucket, action, current.Err)
	case models.LookupPresent:
		parsed, err := bucketpolicy.Parse(current.Value)
		if err != nil {
			e.log.Warn().Err(err).Str("bucket", bucket).Msg("bucket policy not parseable")
			return skipped(bucket, action, ReasonPolicyInvalid)
		}
		doc = parsed
	}
	if doc.HasSid(bucketpolicy.SidDenyInsecureTransport) {
		return skipped(bucket, action, ReasonSSLEnforced)
	}

	stmt, err := bucketpolicy.DenyInsecureTransport(bucket)
	if err != nil {
		return failed(bucket, action, err)
	}
	body, err := doc.With(stmt).Marshal()
	if err != nil {
		return failed(bucket, action, err)
	}
	return outcome(bucket, action, e.store.PutPolicy(ctx, bucket, body))
}

// enableLogging sends access logs to "<bucket>-logs" under "<bucket>/". A
// missing log bucket is created next to the source and locked down first.
func (e *Engine) enableLogging(ctx context.Context, bucket string) models.FixOutcome {
	const action = models.ActionEnabledLogging
	target := bucket + LogBucketSuffix

	exists, err := e.store.BucketExists(ctx, target)
	if err != nil {
		return failed(bucket, action, err)
	}
	if !exists {
		if err := e.store.CreateBucketNear(ctx, target, bucket); err != nil {
			return failed(bucket, action, err)
		}
		if err := e.store.BlockPublicAccess(ctx, target); err != nil {
			return failed(bucket, action, err)
		}
		e.log.Info().Str("bucket", bucket).Str("log_bucket", target).Msg("created access log bucket")
	}
	return outcome(bucket, action, e.store.EnableAccessLogging(ctx, bucket, target, bucket+"/"))
}

func (e *Engine) logOutcome(o models.FixOutcome) {
	ev := e.log.Info()
	if o.Status == models.FixFailed {
		ev = e.log.Error()
	}
	ev.Str("bucket", o.Bucket).
		Str("action", string(o.Action)).
		Str("status", string(o.Status)).
		Str("reason", o.Reason).
		Msg("remediation")
}

// outcome is success when err is nil and failed otherwise.
func outcome(bucket string, action models.ActionKind, err error) models.FixOutcome {
	if err != nil {
		return failed(bucket, action, err)
	}
	return models.FixOutcome{Bucket: bucket, Action: action, Status: models.FixSuccess}
}

func failed(bucket string, action models.ActionKind, err error) models.FixOutcome {
	return models.FixOutcome{Bucket: bucket, Action: action, Status: models.FixFailed, Reason: err.Error()}
}

func skipped(bucket string, action models.ActionKind, reason string) models.FixOutcome {
	return models.FixOutcome{Bucket: bucket, Action: action, Status: models.FixSkipped, Reason: reason}
}

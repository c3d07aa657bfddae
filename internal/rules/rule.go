package rules

import (
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// RuleContext carries the collected posture of a single bucket.
// It is the sole input to Rule.Evaluate and must contain everything a rule
// needs; rules must never make network calls or read external state.
type RuleContext struct {
	// Posture holds the bucket's configuration lookups.
	Posture *models.BucketPosture
}

// Rule is a single deterministic HIPAA posture check.
// Rules must be stateless and safe to call concurrently.
// They must never call the AWS SDK or any external service.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "S3_PUBLIC_ACL").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate inspects the provided context and returns zero or more findings.
	// An empty slice means no issue was detected. A lookup in the Failed state
	// yields no findings; the caller is responsible for reporting it.
	Evaluate(ctx RuleContext) []models.Finding
}

// RuleRegistry holds the active rules and evaluates them in order.
type RuleRegistry interface {
	Register(rule Rule)
	All() []Rule
	IDs() []string
	EvaluateAll(ctx RuleContext) []models.Finding
}

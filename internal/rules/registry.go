package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// DefaultRuleRegistry keeps rules in registration order; that order is the
// order findings appear in a BucketRecord.
type DefaultRuleRegistry struct {
	rules []Rule
	byID  map[string]int
}

// NewDefaultRuleRegistry returns an empty registry.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{byID: make(map[string]int)}
}

// Register appends rule. A second rule with the same ID is a wiring bug and
// panics.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	id := rule.ID()
	if i, dup := r.byID[id]; dup {
		panic(fmt.Sprintf("rule %q registered twice (first as %s)", id, r.rules[i].Name()))
	}
	r.byID[id] = len(r.rules)
	r.rules = append(r.rules, rule)
}

// All returns the registered rules in order.
func (r *DefaultRuleRegistry) All() []Rule {
	return r.rules
}

// IDs returns the registered rule IDs in order.
func (r *DefaultRuleRegistry) IDs() []string {
	ids := make([]string, len(r.rules))
	for i, rule := range r.rules {
		ids[i] = rule.ID()
	}
	return ids
}

// EvaluateAll runs each rule against ctx in order. The result is never nil.
func (r *DefaultRuleRegistry) EvaluateAll(ctx RuleContext) []models.Finding {
	findings := make([]models.Finding, 0, len(r.rules))
	for _, rule := range r.rules {
		findings = append(findings, rule.Evaluate(ctx)...)
	}
	return findings
}

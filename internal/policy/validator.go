package policy

import (
	"fmt"
	"regexp"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

var (
	bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	accountIDRe  = regexp.MustCompile(`^\d{12}$`)
)

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - bucket names in exclude_buckets and include_buckets must be valid S3 names
//   - a bucket may not be both excluded and included
//   - accounts must be 12-digit account IDs, without duplicates
//   - fail_on_severity must be a valid severity value if set
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *ScanConfig) []error {
	if cfg == nil {
		return []error{fmt.Errorf("scan config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for i, name := range cfg.ExcludeBuckets {
		if !bucketNameRe.MatchString(name) {
			errs = append(errs, fmt.Errorf("exclude_buckets[%d]: invalid bucket name %q", i, name))
		}
	}
	for i, name := range cfg.IncludeBuckets {
		if !bucketNameRe.MatchString(name) {
			errs = append(errs, fmt.Errorf("include_buckets[%d]: invalid bucket name %q", i, name))
		}
		if contains(cfg.ExcludeBuckets, name) {
			errs = append(errs, fmt.Errorf("include_buckets[%d]: %q is also excluded; exclusion wins", i, name))
		}
	}

	seen := make(map[string]struct{}, len(cfg.Accounts))
	for i, id := range cfg.Accounts {
		if !accountIDRe.MatchString(id) {
			errs = append(errs, fmt.Errorf("accounts[%d]: invalid account ID %q; must be 12 digits", i, id))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate account ID %q", i, id))
		}
		seen[id] = struct{}{}
	}

	if cfg.FailOnSeverity != "" {
		if _, ok := models.ParseSeverity(cfg.FailOnSeverity); !ok {
			errs = append(errs, fmt.Errorf("fail_on_severity: invalid value %q; valid values: high, medium, low", cfg.FailOnSeverity))
		}
	}

	return errs
}

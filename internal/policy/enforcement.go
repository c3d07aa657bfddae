package policy

import (
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// ShouldFail reports whether any bucket in records has a severity at or above
// the configured fail_on_severity threshold.
//
// It returns false when:
//   - cfg is nil (no config loaded)
//   - fail_on_severity is empty, "none" or an unrecognised value
//   - records is empty
//
// Skipped buckets never trip the threshold.
func ShouldFail(records []models.BucketRecord, cfg *ScanConfig) bool {
	if cfg == nil || cfg.FailOnSeverity == "" {
		return false
	}
	threshold, ok := models.ParseSeverity(cfg.FailOnSeverity)
	if !ok || threshold == models.SeverityNone {
		return false
	}
	for _, r := range records {
		if r.Skipped {
			continue
		}
		if r.Severity.Rank() >= threshold.Rank() {
			return true
		}
	}
	return false
}

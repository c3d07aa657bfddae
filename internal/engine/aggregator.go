package engine

import (
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// Summarize counts the buckets in records and how many of them are high risk.
func Summarize(records []models.BucketRecord) models.ScanSummary {
	s := models.ScanSummary{TotalBuckets: len(records)}
	for _, r := range records {
		if r.Severity == models.SeverityHigh {
			s.HighRisk++
		}
	}
	return s
}

// TallyFixes counts remediation outcomes by status.
func TallyFixes(fixes []models.FixOutcome) models.FixTally {
	var t models.FixTally
	for _, f := range fixes {
		switch f.Status {
		case models.FixSuccess:
			t.Fixed++
		case models.FixSkipped:
			t.Skipped++
		case models.FixFailed:
			t.Failed++
		}
	}
	return t
}

// SeverityCounts returns the number of inspected buckets at each severity.
// Skipped buckets are not counted.
func SeverityCounts(records []models.BucketRecord) map[models.SeverityLevel]int {
	counts := map[models.SeverityLevel]int{
		models.SeverityHigh:   0,
		models.SeverityMedium: 0,
		models.SeverityLow:    0,
		models.SeverityNone:   0,
	}
	for _, r := range records {
		if r.Skipped {
			continue
		}
		counts[r.Severity]++
	}
	return counts
}

// Package render provides presentation-layer helpers for phiguard CLI output.
// It is a pure rendering package: no scanning, no scoring, no AWS API calls.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pankaj-dahiya-devops/phiguard/internal/hipaa"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// FindBucket returns a pointer to the record named bucket in records, or nil
// when no record matches. The pointer refers to the slice element directly.
func FindBucket(records []models.BucketRecord, bucket string) *models.BucketRecord {
	for i := range records {
		if records[i].Name == bucket {
			return &records[i]
		}
	}
	return nil
}

// RenderBucketExplanation writes a structured breakdown of one bucket record
// to w: each finding with its HIPAA control, the risk in plain English and
// the CLI command that fixes it. Findings keep their inspection order.
//
// Example output:
//
//	BUCKET patient-uploads (Severity: HIGH)
//
//	Findings (2):
//
//	  ✗ PublicACL [HIGH]
//	    Found 1 public grants
//	    Control: 164.308(a)(3)(i) Access Control - Implement policies to limit access to PHI
//	    Risk:    The bucket ACL grants access to everyone; ...
//	    Fix:     aws s3api put-bucket-acl --bucket patient-uploads --acl private
func RenderBucketExplanation(w io.Writer, rec models.BucketRecord) {
	fmt.Fprintf(w, "BUCKET %s (Severity: %s)\n", rec.Name, upper(rec.Severity))
	if rec.Skipped {
		fmt.Fprintln(w, "Excluded by configuration; not inspected.")
		return
	}
	fmt.Fprintln(w)

	if len(rec.Findings) == 0 {
		fmt.Fprintln(w, "No findings. Bucket meets every checked safeguard.")
		return
	}

	fmt.Fprintf(w, "Findings (%d):\n", len(rec.Findings))
	for _, f := range rec.Findings {
		c := hipaa.Lookup(f.Type)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  ✗ %s [%s]\n", f.Type, upper(f.Severity()))
		if f.Details != "" {
			fmt.Fprintf(w, "    %s\n", f.Details)
		}
		fmt.Fprintf(w, "    Control: %s %s\n", c.ID, c.Safeguard)
		fmt.Fprintf(w, "    Risk:    %s\n", c.Risk)
		fmt.Fprintf(w, "    Fix:     %s\n", c.FixCommand(rec.Name))
	}
}

// explainedFinding is the JSON form of one finding with its control.
type explainedFinding struct {
	Type       models.FindingKind   `json:"type"`
	Details    string               `json:"details"`
	Severity   models.SeverityLevel `json:"severity"`
	Control    string               `json:"control"`
	Safeguard  string               `json:"safeguard"`
	Risk       string               `json:"risk"`
	FixCommand string               `json:"fix_command"`
}

// WriteExplainJSON writes the bucket explanation as indented JSON to w.
//
// When rec is non-nil, the output is:
//
//	{"bucket": "...", "severity": "...", "skipped": false, "findings": [...]}
//
// When rec is nil (bucket not in the result), the output is:
//
//	{"error": "No bucket named X in scan result"}
func WriteExplainJSON(w io.Writer, rec *models.BucketRecord, bucket string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if rec == nil {
		return enc.Encode(map[string]string{
			"error": fmt.Sprintf("No bucket named %s in scan result", bucket),
		})
	}
	findings := make([]explainedFinding, 0, len(rec.Findings))
	for _, f := range rec.Findings {
		c := hipaa.Lookup(f.Type)
		findings = append(findings, explainedFinding{
			Type:       f.Type,
			Details:    f.Details,
			Severity:   f.Severity(),
			Control:    c.ID,
			Safeguard:  c.Safeguard,
			Risk:       c.Risk,
			FixCommand: c.FixCommand(rec.Name),
		})
	}
	return enc.Encode(map[string]any{
		"bucket":   rec.Name,
		"severity": rec.Severity,
		"skipped":  rec.Skipped,
		"findings": findings,
	})
}

func upper(s models.SeverityLevel) string {
	switch s {
	case models.SeverityHigh:
		return "HIGH"
	case models.SeverityMedium:
		return "MEDIUM"
	case models.SeverityLow:
		return "LOW"
	default:
		return "NONE"
	}
}

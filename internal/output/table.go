package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/phiguard/internal/engine"
	"github.com/pankaj-dahiya-devops/phiguard/internal/hipaa"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
	ansiGreen   = "\033[0;32m"
)

// TableOptions controls how tables are rendered.
type TableOptions struct {
	// Colored wraps severity and status labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeSkipped lists excluded buckets as rows. They are always counted
	// in the summary.
	IncludeSkipped bool
}

func severityColor(sev models.SeverityLevel) string {
	switch sev {
	case models.SeverityHigh:
		return ansiBoldRed
	case models.SeverityMedium:
		return ansiYellow
	case models.SeverityLow:
		return ansiBlue
	default:
		return ""
	}
}

func statusColor(s models.FixStatus) string {
	switch s {
	case models.FixSuccess:
		return ansiGreen
	case models.FixSkipped:
		return ansiYellow
	case models.FixFailed:
		return ansiBoldRed
	default:
		return ""
	}
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.SeverityLevel, colored bool) string {
	s := string(sev)
	code := severityColor(sev)
	if !colored || code == "" {
		return s
	}
	return code + s + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// coloredCell returns text padded to width characters.
// When code is set, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func coloredCell(text, code string, width int, colored bool) string {
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for name/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func findingList(rec models.BucketRecord) string {
	if rec.Skipped {
		return "(excluded)"
	}
	if len(rec.Findings) == 0 {
		return "-"
	}
	kinds := make([]string, 0, len(rec.Findings))
	for _, f := range rec.Findings {
		kinds = append(kinds, string(f.Type))
	}
	return strings.Join(kinds, ", ")
}

// RenderTable writes a formatted bucket table to w, one row per record in
// scan order. The separator line width is derived from the header row.
//
// Column order:
//
//	BUCKET  SEVERITY  FINDINGS
func RenderTable(w io.Writer, records []models.BucketRecord, opts TableOptions) {
	rows := make([]models.BucketRecord, 0, len(records))
	for _, r := range records {
		if r.Skipped && !opts.IncludeSkipped {
			continue
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No buckets.")
		return
	}

	// Fixed column display widths.
	const (
		wBucket   = 40
		wSeverity = 8
		wFindings = 70
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s", wBucket, "BUCKET", wSeverity, "SEVERITY", wFindings, "FINDINGS")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range rows {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wBucket, truncateField(r.Name, wBucket)))
		rb.WriteString("  " + coloredCell(string(r.Severity), severityColor(r.Severity), wSeverity, opts.Colored))
		rb.WriteString("  " + ShortenMessage(findingList(r), wFindings))
		fmt.Fprintln(w, rb.String())
	}
}

// RenderFixes writes the remediation outcomes table to w.
//
// Column order:
//
//	BUCKET  ACTION  STATUS  REASON
func RenderFixes(w io.Writer, fixes []models.FixOutcome, opts TableOptions) {
	if len(fixes) == 0 {
		fmt.Fprintln(w, "No remediation actions taken.")
		return
	}

	const (
		wBucket = 40
		wAction = 28
		wStatus = 8
		wReason = 60
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s", wBucket, "BUCKET", wAction, "ACTION", wStatus, "STATUS", wReason, "REASON")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, f := range fixes {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wBucket, truncateField(f.Bucket, wBucket)))
		rb.WriteString(fmt.Sprintf("  %-*s", wAction, f.Action))
		rb.WriteString("  " + coloredCell(string(f.Status), statusColor(f.Status), wStatus, opts.Colored))
		rb.WriteString("  " + ShortenMessage(f.Reason, wReason))
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// Headline is the one-line verdict of a run, suitable as a notification
// subject.
//
// Scan only:   "S3 Scan: N issues found" or "S3 Scan: All Clean".
// Remediation: "S3 Scan: F issues fixed, H needs your help" where H counts
// skipped and failed fixes plus the high-risk buckets of the scan, or
// "S3 Scan: F issues fixed, All Clean" when H is zero.
func Headline(result *models.ScanResult) string {
	if result.Failed() {
		return "S3 Scan: failed - " + result.Error.Message
	}
	if !result.Remediated() {
		if result.Summary.HighRisk > 0 {
			return fmt.Sprintf("S3 Scan: %d issues found", result.Summary.HighRisk)
		}
		return "S3 Scan: All Clean"
	}
	tally := engine.TallyFixes(result.Fixes)
	help := tally.NeedsAttention() + result.Summary.HighRisk
	if help > 0 {
		return fmt.Sprintf("S3 Scan: %d issues fixed, %d needs your help", tally.Fixed, help)
	}
	return fmt.Sprintf("S3 Scan: %d issues fixed, All Clean", tally.Fixed)
}

// RenderSummary writes the headline, bucket counts, per-severity counts,
// findings per HIPAA control and, when remediation ran, the fix tally.
func RenderSummary(w io.Writer, result *models.ScanResult, opts TableOptions) {
	fmt.Fprintln(w, Headline(result))
	if result.Failed() {
		return
	}
	fmt.Fprintf(w, "Buckets: %d total, %d high risk\n", result.Summary.TotalBuckets, result.Summary.HighRisk)

	counts := engine.SeverityCounts(result.Buckets)
	parts := make([]string, 0, 4)
	for _, sev := range []models.SeverityLevel{models.SeverityHigh, models.SeverityMedium, models.SeverityLow, models.SeverityNone} {
		parts = append(parts, fmt.Sprintf("%s=%d", ColorSeverity(sev, opts.Colored), counts[sev]))
	}
	fmt.Fprintf(w, "Severity: %s\n", strings.Join(parts, " "))

	if byControl := hipaa.ViolationsByControl(result.Buckets); len(byControl) > 0 {
		ids := make([]string, 0, len(byControl))
		for id := range byControl {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		controls := make([]string, 0, len(ids))
		for _, id := range ids {
			controls = append(controls, fmt.Sprintf("%s=%d", id, byControl[id]))
		}
		fmt.Fprintf(w, "Controls: %s\n", strings.Join(controls, " "))
	}

	if result.Remediated() {
		t := engine.TallyFixes(result.Fixes)
		fmt.Fprintf(w, "Fixes:    %d fixed, %d skipped, %d failed\n", t.Fixed, t.Skipped, t.Failed)
	}
}

// RenderResult writes the summary, the bucket table and, when remediation
// ran, the fixes table.
func RenderResult(w io.Writer, result *models.ScanResult, opts TableOptions) {
	RenderSummary(w, result, opts)
	if result.Failed() {
		return
	}
	fmt.Fprintln(w)
	RenderTable(w, result.Buckets, opts)
	if result.Remediated() {
		fmt.Fprintln(w)
		RenderFixes(w, result.Fixes, opts)
	}
}

// RenderAccountResults writes one section per account.
func RenderAccountResults(w io.Writer, results []models.AccountResult, opts TableOptions) {
	for i, ar := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== Account %s ==\n", ar.AccountID)
		res := ar.Result
		RenderResult(w, &res, opts)
	}
}

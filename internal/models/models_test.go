package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// ── severity ─────────────────────────────────────────────────────────────────

func TestSeverityRankOrder(t *testing.T) {
	order := []SeverityLevel{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("Rank(%s) = %d; want > Rank(%s) = %d", order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
	if SeverityLevel("bogus").Rank() != 0 {
		t.Error("unknown severity must rank as none")
	}
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		a, b, want SeverityLevel
	}{
		{SeverityNone, SeverityHigh, SeverityHigh},
		{SeverityHigh, SeverityMedium, SeverityHigh},
		{SeverityMedium, SeverityMedium, SeverityMedium},
		{SeverityLow, SeverityNone, SeverityLow},
	}
	for _, tt := range tests {
		if got := MaxSeverity(tt.a, tt.b); got != tt.want {
			t.Errorf("MaxSeverity(%s, %s) = %s; want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSeverityFor(t *testing.T) {
	want := map[FindingKind]SeverityLevel{
		FindingPublicAccessBlockDisabled: SeverityHigh,
		FindingPublicACL:                 SeverityHigh,
		FindingWildcardPolicy:            SeverityMedium,
		FindingNoPolicy:                  SeverityMedium,
		FindingNoEncryption:              SeverityMedium,
	}
	for kind, sev := range want {
		if got := SeverityFor(kind); got != sev {
			t.Errorf("SeverityFor(%s) = %s; want %s", kind, got, sev)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if lvl, ok := ParseSeverity(" HIGH "); !ok || lvl != SeverityHigh {
		t.Errorf("ParseSeverity(HIGH) = %q, %v", lvl, ok)
	}
	if _, ok := ParseSeverity("critical"); ok {
		t.Error("ParseSeverity(critical) should not be recognised")
	}
}

// ── bucket records ───────────────────────────────────────────────────────────

func TestNewBucketRecord_SeverityIsMaxOfFindings(t *testing.T) {
	rec := NewBucketRecord("b", []Finding{
		{Type: FindingNoEncryption},
		{Type: FindingPublicACL},
	})
	if rec.Severity != SeverityHigh {
		t.Errorf("Severity = %s; want high", rec.Severity)
	}
	if !rec.HasFinding(FindingPublicACL) || rec.HasFinding(FindingNoPolicy) {
		t.Error("HasFinding returned wrong answer")
	}

	clean := NewBucketRecord("c", nil)
	if clean.Severity != SeverityNone || clean.Findings == nil {
		t.Errorf("clean record = %+v; want severity none and empty findings", clean)
	}
}

func TestNewSkippedRecord(t *testing.T) {
	rec := NewSkippedRecord("logs")
	if !rec.Skipped || rec.Severity != SeverityNone || len(rec.Findings) != 0 {
		t.Errorf("skipped record = %+v", rec)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"logs","findings":[],"severity":"none","skipped":true}`
	if string(data) != want {
		t.Errorf("json = %s; want %s", data, want)
	}
}

// ── scan result JSON ─────────────────────────────────────────────────────────

func TestScanResultJSON_FixesKeyPresence(t *testing.T) {
	scanOnly := ScanResult{Summary: ScanSummary{TotalBuckets: 0}}
	data, _ := json.Marshal(scanOnly)
	if strings.Contains(string(data), `"fixes"`) {
		t.Errorf("scan-only result must not carry fixes: %s", data)
	}
	if !strings.Contains(string(data), `"buckets":[]`) {
		t.Errorf("nil buckets must encode as []: %s", data)
	}

	remediated := ScanResult{Fixes: []FixOutcome{}}
	data, _ = json.Marshal(remediated)
	if !strings.Contains(string(data), `"fixes":[]`) {
		t.Errorf("remediated result must carry empty fixes: %s", data)
	}

	var back ScanResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Remediated() {
		t.Error("decoded result lost the fixes key")
	}
}

func TestScanResultJSON_Error(t *testing.T) {
	r := ScanResult{Error: &ScanError{Message: "list S3 buckets: AccessDenied"}}
	data, _ := json.Marshal(r)
	want := `{"summary":{"total_buckets":0,"high_risk":0},"buckets":[],"error":{"message":"list S3 buckets: AccessDenied"}}`
	if string(data) != want {
		t.Errorf("json = %s; want %s", data, want)
	}
	if !r.Failed() {
		t.Error("Failed() = false")
	}
}

// ── posture ──────────────────────────────────────────────────────────────────

func TestPublicGrants(t *testing.T) {
	grants := []Grant{
		{GranteeType: "Group", URI: AllUsersGroupURI, Permission: "READ"},
		{GranteeType: "group", URI: AllUsersGroupURI, Permission: "WRITE"},
		{GranteeType: "Group", URI: "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"},
		{GranteeType: "CanonicalUser", ID: "abc"},
	}
	if got := len(PublicGrants(grants)); got != 2 {
		t.Errorf("PublicGrants = %d; want 2", got)
	}
}

func TestLookupConstructors(t *testing.T) {
	if l := Present(3); l.State != LookupPresent || l.Value != 3 {
		t.Errorf("Present = %+v", l)
	}
	if l := Absent[int](); l.State != LookupAbsent {
		t.Errorf("Absent = %+v", l)
	}
	boom := errors.New("boom")
	if l := Failed[int](boom); l.State != LookupFailed || !errors.Is(l.Err, boom) {
		t.Errorf("Failed = %+v", l)
	}
	if LookupFailed.String() != "failed" {
		t.Errorf("String = %q", LookupFailed.String())
	}
}

func TestDisabledFlags(t *testing.T) {
	got := PublicAccessBlock{BlockPublicAcls: true, BlockPublicPolicy: true}.DisabledFlags()
	if strings.Join(got, ",") != "IgnorePublicAcls,RestrictPublicBuckets" {
		t.Errorf("DisabledFlags = %v", got)
	}
}

func TestFixTally(t *testing.T) {
	if got := (FixTally{Fixed: 2, Skipped: 1, Failed: 3}).NeedsAttention(); got != 4 {
		t.Errorf("NeedsAttention = %d; want 4", got)
	}
}

package invocation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pankaj-dahiya-devops/phiguard/internal/engine"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/policy"
)

func TestNormalize_Direct(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want engine.Request
	}{
		{
			name: "defaults to dry run",
			raw:  `{}`,
			want: engine.Request{Config: &policy.ScanConfig{}, DryRun: true},
		},
		{
			name: "remediate for real",
			raw:  `{"config":{"exclude_buckets":["logs"]},"remediate":true,"dry_run":false}`,
			want: engine.Request{
				Config:    &policy.ScanConfig{ExcludeBuckets: []string{"logs"}},
				Remediate: true,
			},
		},
		{
			name: "remediate without dry_run stays dry",
			raw:  `{"remediate":true}`,
			want: engine.Request{Config: &policy.ScanConfig{}, Remediate: true, DryRun: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, env, err := Normalize([]byte(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env != EnvelopeDirect {
				t.Errorf("envelope = %q; want direct", env)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_CustomResource(t *testing.T) {
	inner := `{"config":{"exclude_buckets":["cfn-logs"]},"remediate":true,"dry_run":false}`
	outer, _ := json.Marshal(map[string]any{
		"RequestType":        "Create",
		"ResourceProperties": map[string]string{"ScanConfig": inner},
	})

	got, env, err := Normalize(outer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env != EnvelopeCustomResource {
		t.Errorf("envelope = %q; want custom_resource", env)
	}
	if !got.Mutates() || !got.Config.Excluded("cfn-logs") {
		t.Errorf("request = %+v", got)
	}
}

func TestNormalize_CustomResourceDeleteScansOnly(t *testing.T) {
	got, env, err := Normalize([]byte(`{"RequestType":"Delete","ResourceProperties":{"ScanConfig":"{\"remediate\":true,\"dry_run\":false}"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env != EnvelopeCustomResource || got.Mutates() {
		t.Errorf("env=%q request=%+v; want a non-mutating custom resource request", env, got)
	}
}

func TestNormalize_CustomResourceBadScanConfig(t *testing.T) {
	_, env, err := Normalize([]byte(`{"RequestType":"Create","ResourceProperties":{"ScanConfig":"not json"}}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if env != EnvelopeCustomResource {
		t.Errorf("envelope = %q; want custom_resource", env)
	}
}

func snsEventFor(t *testing.T, msg map[string]any) []byte {
	t.Helper()
	m, _ := json.Marshal(msg)
	ev, _ := json.Marshal(map[string]any{
		"Records": []any{map[string]any{"Sns": map[string]string{"Message": string(m)}}},
	})
	return ev
}

func TestNormalize_ConfigEvent(t *testing.T) {
	raw := snsEventFor(t, map[string]any{
		"ConfigRuleName":  "s3-bucket-public-read-prohibited",
		"ResourceId":      "patient-uploads",
		"ClientAccountId": "111122223333",
		"dry_run":         false,
	})
	got, env, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env != EnvelopeConfigEvent {
		t.Errorf("envelope = %q; want config_event", env)
	}
	want := engine.Request{
		Config: &policy.ScanConfig{
			ExcludeBuckets: []string{},
			IncludeBuckets: []string{"patient-uploads"},
		},
		Remediate: true,
		AccountID: "111122223333",
		Actions:   []models.ActionKind{models.ActionRemovedPublicACL, models.ActionEnabledPublicAccessBlock},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_ConfigEventDefaultsToDryRun(t *testing.T) {
	raw := snsEventFor(t, map[string]any{
		"ConfigRuleName":  "s3-bucket-server-side-encryption-enabled",
		"ResourceId":      "b",
		"ClientAccountId": "111122223333",
	})
	got, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.DryRun || got.Mutates() {
		t.Errorf("request = %+v; want dry run", got)
	}
}

func TestNormalize_ConfigRuleActions(t *testing.T) {
	tests := []struct {
		rule string
		want []models.ActionKind
	}{
		{"s3-bucket-versioning-enabled", []models.ActionKind{models.ActionEnabledVersioning}},
		{"s3-bucket-server-side-encryption-enabled", []models.ActionKind{models.ActionEnabledEncryption}},
		{"s3-bucket-ssl-requests-only", []models.ActionKind{models.ActionEnforcedSSL}},
		{"s3-bucket-logging-enabled", []models.ActionKind{models.ActionEnabledLogging}},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			got, _, err := Normalize(snsEventFor(t, map[string]any{
				"ConfigRuleName":  tt.rule,
				"ResourceId":      "b",
				"ClientAccountId": "111122223333",
			}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Actions); diff != "" {
				t.Errorf("actions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_BareConfigMessage(t *testing.T) {
	got, env, err := Normalize([]byte(`{"ConfigRuleName":"s3-bucket-versioning-enabled","ResourceId":"ehr-exports","ClientAccountId":"444455556666","dry_run":false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env != EnvelopeConfigEvent {
		t.Errorf("envelope = %q; want config_event", env)
	}
	want := engine.Request{
		Config: &policy.ScanConfig{
			ExcludeBuckets: []string{},
			IncludeBuckets: []string{"ehr-exports"},
		},
		Remediate: true,
		AccountID: "444455556666",
		Actions:   []models.ActionKind{models.ActionEnabledVersioning},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_BareConfigMessageUnknownRule(t *testing.T) {
	_, env, err := Normalize([]byte(`{"ConfigRuleName":"s3-bucket-policy-grantee-check","ResourceId":"b"}`))
	if !errors.Is(err, ErrUnknownRule) || env != EnvelopeConfigEvent {
		t.Errorf("err = %v, env = %q; want ErrUnknownRule as config_event", err, env)
	}
}

func TestNormalize_ConfigEventUnknownRule(t *testing.T) {
	raw := snsEventFor(t, map[string]any{
		"ConfigRuleName":  "s3-bucket-public-write-prohibited",
		"ResourceId":      "b",
		"ClientAccountId": "111122223333",
	})
	_, env, err := Normalize(raw)
	if !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("err = %v; want ErrUnknownRule", err)
	}
	resp := ErrorResponse(env, err).(HTTPResponse)
	if resp.StatusCode != 400 || !strings.Contains(resp.Body, "s3-bucket-public-write-prohibited") {
		t.Errorf("response = %+v", resp)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	if _, _, err := Normalize([]byte(`{`)); err == nil {
		t.Fatal("expected error for malformed event")
	}
}

// ── responses ────────────────────────────────────────────────────────────────

func TestRespond_Direct(t *testing.T) {
	result := &models.ScanResult{Summary: models.ScanSummary{TotalBuckets: 1}}
	out, err := Respond(EnvelopeDirect, result)
	if err != nil {
		t.Fatal(err)
	}
	resp := out.(HTTPResponse)
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	want := `{"summary":{"total_buckets":1,"high_risk":0},"buckets":[]}`
	if resp.Body != want {
		t.Errorf("Body = %s; want %s", resp.Body, want)
	}
}

func TestRespond_CustomResource(t *testing.T) {
	result := &models.ScanResult{Fixes: []models.FixOutcome{}}
	out, err := Respond(EnvelopeCustomResource, result)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(out)
	want := `{"Status":"SUCCESS","Data":{"message":"Scan completed","results":{"summary":{"total_buckets":0,"high_risk":0},"buckets":[],"fixes":[]}}}`
	if string(data) != want {
		t.Errorf("json = %s; want %s", data, want)
	}
}

func TestErrorResponse_CustomResource(t *testing.T) {
	resp := ErrorResponse(EnvelopeCustomResource, errors.New("boom")).(CustomResourceResponse)
	if resp.Status != "FAILED" || resp.Data.Message != "boom" {
		t.Errorf("response = %+v", resp)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/common"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{RoleName: common.DefaultRemediationRoleName, LogLevel: "info", LogFormat: "console"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeFile(t, `
profile: audit
region: eu-west-1
results_bucket: scan-results
audit_table: remediation-log
log_level: debug
`)
	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile != "audit" || cfg.Region != "eu-west-1" {
		t.Errorf("profile/region = %q/%q", cfg.Profile, cfg.Region)
	}
	if cfg.ResultsBucket != "scan-results" || cfg.AuditTable != "remediation-log" {
		t.Errorf("results_bucket/audit_table = %q/%q", cfg.ResultsBucket, cfg.AuditTable)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "results_bucket: from-file\n")
	t.Setenv("PHIGUARD_RESULTS_BUCKET", "from-env")
	t.Setenv("PHIGUARD_AUDIT_TABLE", "env-table")

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ResultsBucket != "from-env" {
		t.Errorf("results_bucket = %q, want from-env", cfg.ResultsBucket)
	}
	if cfg.AuditTable != "env-table" {
		t.Errorf("audit_table = %q, want env-table", cfg.AuditTable)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("PHIGUARD_ROLE_NAME", "EnvRole")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("role-name", "", "")
	fs.Bool("unrelated", false, "")
	if err := fs.Parse([]string{"--role-name", "FlagRole"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	l := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	if err := l.BindFlags(fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RoleName != "FlagRole" {
		t.Errorf("role_name = %q, want FlagRole", cfg.RoleName)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "region: [unterminated\n")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{LogLevel: "warn", RoleName: "Role"}, ""},
		{"uppercase level", Config{LogLevel: "DEBUG"}, ""},
		{"bad level", Config{LogLevel: "verbose"}, "log_level"},
		{"role arn", Config{LogLevel: "info", RoleName: "arn:aws:iam::1:role/x"}, "role_name"},
		{"json format", Config{LogLevel: "info", LogFormat: "JSON"}, ""},
		{"bad format", Config{LogLevel: "info", LogFormat: "xml"}, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_LogFormatFromEnv(t *testing.T) {
	t.Setenv("PHIGUARD_LOG_FORMAT", "json")
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.JSONLogs() {
		t.Errorf("log_format = %q; want json", cfg.LogFormat)
	}
}

func TestConfigPath(t *testing.T) {
	if got := NewLoader("/tmp/x.yaml").ConfigPath(); got != "/tmp/x.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := NewLoader("").ConfigPath(); !strings.HasSuffix(got, filepath.Join("phiguard", "config.yaml")) {
		t.Errorf("default ConfigPath = %q", got)
	}
}

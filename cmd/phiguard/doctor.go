package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/phiguard/internal/config"
	"github.com/pankaj-dahiya-devops/phiguard/internal/engine"
	"github.com/pankaj-dahiya-devops/phiguard/internal/policy"
	"github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/common"
)

var errUnhealthy = errors.New("environment checks failed")

// DoctorResult is the structured output of phiguard doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		S3OK        bool   `json:"s3_ok"`
		Buckets     int    `json:"buckets"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Settings struct {
		Path          string `json:"path"`
		ResultsBucket string `json:"results_bucket,omitempty"`
		AuditTable    string `json:"audit_table,omitempty"`
		RoleName      string `json:"role_name"`
	} `json:"settings"`

	Rules []string `json:"rules"`

	ScanConfig struct {
		Path    string   `json:"path,omitempty"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"scan_config"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runDoctor(
				cmd.Context(),
				a.deps.provider,
				a.deps.newStore,
				a.cfg,
				config.NewLoader(a.settingsPath).ConfigPath(),
				cmd.OutOrStdout(),
				format,
			)
			if err != nil {
				// Rendering failure.
				return err
			}
			if !result.OverallHealthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures; callers inspect
// result.OverallHealthy for the verdict.
func runDoctor(ctx context.Context, provider common.AWSClientProvider, newStore func(aws.Config) engine.Storage, cfg *config.Config, settingsPath string, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, provider, newStore, cfg, settingsPath)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
func collectDoctorResult(ctx context.Context, provider common.AWSClientProvider, newStore func(aws.Config) engine.Storage, cfg *config.Config, settingsPath string) DoctorResult {
	var result DoctorResult

	result.Settings.Path = settingsPath
	result.Settings.ResultsBucket = cfg.ResultsBucket
	result.Settings.AuditTable = cfg.AuditTable
	result.Settings.RoleName = cfg.RoleName
	result.Rules = newRegistry().IDs()

	// AWS: credentials and STS identity, then one ListBuckets call.
	result.AWS.Profile = cfg.Profile
	profile, err := provider.LoadProfile(ctx, cfg.Profile, cfg.Region)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profile.AccountID
		names, err := newStore(profile.Config).ListBucketNames(ctx)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.S3OK = true
			result.AWS.Buckets = len(names)
		}
	}

	// Remediation config: optional; when set it must load and validate.
	result.ScanConfig.Path = cfg.ScanConfig
	if cfg.ScanConfig != "" {
		_, statErr := os.Stat(cfg.ScanConfig)
		switch {
		case statErr == nil:
			result.ScanConfig.Present = true
			sc, loadErr := policy.LoadScanConfig(cfg.ScanConfig)
			if loadErr != nil {
				result.ScanConfig.Errors = []string{loadErr.Error()}
				break
			}
			errs := policy.Validate(sc)
			if len(errs) == 0 {
				result.ScanConfig.Valid = true
			}
			for _, e := range errs {
				result.ScanConfig.Errors = append(result.ScanConfig.Errors, e.Error())
			}
		case os.IsNotExist(statErr):
			result.ScanConfig.Errors = []string{"file not found"}
		default:
			result.ScanConfig.Present = true
			result.ScanConfig.Errors = []string{statErr.Error()}
		}
	}

	result.OverallHealthy = result.AWS.Credentials &&
		result.AWS.S3OK &&
		(cfg.ScanConfig == "" || result.ScanConfig.Valid)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "S3 ListBuckets", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.S3OK {
			doctorPrint(w, "S3 ListBuckets", "OK", fmt.Sprintf("%d buckets", result.AWS.Buckets))
		} else {
			doctorPrint(w, "S3 ListBuckets", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nSettings:")
	doctorPrint(w, "File", result.Settings.Path, "")
	doctorPrint(w, "Remediation role", result.Settings.RoleName, "")
	doctorPrint(w, "Results bucket", orNotSet(result.Settings.ResultsBucket), "")
	doctorPrint(w, "Audit table", orNotSet(result.Settings.AuditTable), "")

	fmt.Fprintln(w, "\nRules:")
	for _, id := range result.Rules {
		doctorPrint(w, id, "loaded", "")
	}

	fmt.Fprintln(w, "\nRemediation config:")
	switch {
	case result.ScanConfig.Path == "":
		doctorPrint(w, "Config file", "Not set (optional)", "")
	case result.ScanConfig.Valid:
		doctorPrint(w, "Config file", "OK", result.ScanConfig.Path)
	default:
		for _, e := range result.ScanConfig.Errors {
			doctorPrint(w, "Config file", "FAIL", e)
		}
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}

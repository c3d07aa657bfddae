package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/phiguard/internal/archive"
	"github.com/pankaj-dahiya-devops/phiguard/internal/engine"
	"github.com/pankaj-dahiya-devops/phiguard/internal/invocation"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/output"
	"github.com/pankaj-dahiya-devops/phiguard/internal/policy"
	"github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/phiguard/internal/render"
	"github.com/pankaj-dahiya-devops/phiguard/internal/version"
)

// errThresholdExceeded is returned when a bucket reaches fail_on_severity.
var errThresholdExceeded = errors.New("one or more buckets reached the configured fail_on_severity")

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultDeps())
}

func newRootCmdWith(d *deps) *cobra.Command {
	a := &app{deps: d}

	root := &cobra.Command{
		Use:           "phiguard",
		Short:         "phiguard - S3 HIPAA compliance scanner and remediator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.settingsPath, "settings", "", "Settings file (default: ~/.config/phiguard/config.yaml)")
	pf.String("profile", "", "AWS profile name (default: uses environment / default profile)")
	pf.String("region", "", "AWS region used when the profile has none")
	pf.String("role-name", "", "Role assumed in member accounts (default: PHIGuardRemediationRole)")
	pf.String("results-bucket", "", "S3 bucket receiving archived scan results")
	pf.String("audit-table", "", "DynamoDB table receiving remediation audit items")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json (default: console)")

	root.AddCommand(
		newScanCmd(a),
		newHandleCmd(a),
		newAccountsCmd(a),
		newExplainCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

func newScanCmd(a *app) *cobra.Command {
	var (
		configPath string
		remediate  bool
		dryRun     bool
		format     string
		accounts   []string
		org        bool
		toArchive  bool
		toAudit    bool
		outputPath string
		color      bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan S3 buckets and optionally remediate findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if configPath == "" {
				configPath = a.cfg.ScanConfig
			}
			scanCfg, err := loadScanConfig(configPath)
			if err != nil {
				return err
			}

			profile, err := a.loadProfile(ctx)
			if err != nil {
				return err
			}

			if len(accounts) == 0 {
				accounts = scanCfg.Accounts
			}
			if org {
				accounts, err = orgAccountIDs(cmd, profile)
				if err != nil {
					return err
				}
			}

			req := engine.Request{Config: scanCfg, Remediate: remediate, DryRun: dryRun}
			if remediate && dryRun {
				a.log.Warn().Msg("dry run: no changes will be made; pass --dry-run=false to remediate")
			}
			multi := len(accounts) > 0
			var results []models.AccountResult
			if multi {
				results = a.runAccounts(ctx, profile, accounts, req)
			} else {
				results = []models.AccountResult{a.runLocal(ctx, profile, req)}
			}

			persistErr := a.persist(ctx, profile, results, toArchive, toAudit)

			if outputPath != "" {
				if err := writeResultsToFile(outputPath, results, multi); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if format == "json" {
				if err := printResultsJSON(w, results, multi); err != nil {
					return err
				}
			} else {
				opts := output.TableOptions{Colored: color}
				if multi {
					output.RenderAccountResults(w, results, opts)
				} else {
					output.RenderResult(w, &results[0].Result, opts)
				}
			}

			if persistErr != nil {
				return persistErr
			}
			return scanOutcome(results, scanCfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Remediation config file (version, exclude_buckets, include_buckets, accounts)")
	cmd.Flags().BoolVar(&remediate, "remediate", false, "Apply corrective actions to eligible buckets (requires --dry-run=false)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Report what would be remediated without changing anything; --dry-run=false applies changes")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: json or table")
	cmd.Flags().StringSliceVar(&accounts, "accounts", nil, "Member account IDs to scan through the remediation role")
	cmd.Flags().BoolVar(&org, "org", false, "Scan every ACTIVE account in the organization")
	cmd.Flags().BoolVar(&toArchive, "archive", false, "Archive results to the results bucket")
	cmd.Flags().BoolVar(&toAudit, "audit", false, "Write remediation outcomes to the audit table")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the full JSON result to this file path (in addition to stdout output)")
	cmd.Flags().BoolVar(&color, "color", false, "Colour severities and fix statuses")

	return cmd
}

// loadScanConfig reads and validates the remediation config. An empty path
// yields an empty config that scans every bucket.
func loadScanConfig(path string) (*policy.ScanConfig, error) {
	if path == "" {
		return &policy.ScanConfig{Version: 1, ExcludeBuckets: []string{}}, nil
	}
	cfg, err := policy.LoadScanConfig(path)
	if err != nil {
		return nil, err
	}
	if errs := policy.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %w", path, errors.Join(errs...))
	}
	return cfg, nil
}

// scanOutcome turns failed accounts and threshold breaches into an error so
// the process exits non-zero.
func scanOutcome(results []models.AccountResult, cfg *policy.ScanConfig) error {
	var (
		failed  []string
		records []models.BucketRecord
	)
	for _, ar := range results {
		if ar.Result.Failed() {
			failed = append(failed, ar.AccountID)
		}
		records = append(records, ar.Result.Buckets...)
	}
	if len(failed) > 0 {
		return fmt.Errorf("scan failed for account(s): %s", strings.Join(failed, ", "))
	}
	if policy.ShouldFail(records, cfg) {
		return errThresholdExceeded
	}
	return nil
}

func orgAccountIDs(cmd *cobra.Command, profile *common.ProfileConfig) ([]string, error) {
	accts, err := common.ListActiveAccounts(cmd.Context(), profile.Clients.Organizations)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accts))
	for _, acct := range accts {
		ids = append(ids, acct.ID)
	}
	return ids, nil
}

// printResultsJSON writes a single ScanResult, or every AccountResult for a
// multi-account run, as indented JSON.
func printResultsJSON(w io.Writer, results []models.AccountResult, multi bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if multi {
		return enc.Encode(results)
	}
	return enc.Encode(results[0].Result)
}

// writeResultsToFile serialises the results as indented JSON and writes them
// to path, creating or overwriting the file.
func writeResultsToFile(path string, results []models.AccountResult, multi bool) error {
	var (
		data []byte
		err  error
	)
	if multi {
		data, err = json.MarshalIndent(results, "", "  ")
	} else {
		data, err = json.MarshalIndent(results[0].Result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results file %q: %w", path, err)
	}
	return nil
}

func newHandleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle [event-file]",
		Short: "Process one invocation event (direct, custom resource or Config/SNS) and print the response",
		Long: "Reads an event from the named file, or stdin when omitted or \"-\", runs it " +
			"and prints the response envelope. Results are archived and fixes audited " +
			"when results_bucket and audit_table are configured.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, err := readEvent(cmd, args)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			req, env, err := invocation.Normalize(raw)
			if err != nil {
				a.log.Error().Err(err).Str("envelope", string(env)).Msg("event rejected")
				if encErr := writeJSON(w, invocation.ErrorResponse(env, err)); encErr != nil {
					return encErr
				}
				return err
			}

			profile, err := a.loadProfile(ctx)
			if err != nil {
				return err
			}

			var ar models.AccountResult
			if req.AccountID != "" && req.AccountID != profile.AccountID {
				ar = a.runAccounts(ctx, profile, []string{req.AccountID}, req)[0]
			} else {
				ar = a.runLocal(ctx, profile, req)
			}

			results := []models.AccountResult{ar}
			if err := a.persist(ctx, profile, results, a.cfg.ResultsBucket != "", a.cfg.AuditTable != ""); err != nil {
				a.log.Warn().Err(err).Msg("result persistence incomplete")
			}

			resp, err := invocation.Respond(env, &ar.Result)
			if err != nil {
				return err
			}
			return writeJSON(w, resp)
		},
	}
	return cmd
}

func readEvent(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read event from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read event file %q: %w", args[0], err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAccountsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the ACTIVE accounts of the organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.loadProfile(cmd.Context())
			if err != nil {
				return err
			}
			accts, err := common.ListActiveAccounts(cmd.Context(), profile.Clients.Organizations)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == "json" {
				if accts == nil {
					accts = []common.OrgAccount{}
				}
				return writeJSON(w, accts)
			}
			if len(accts) == 0 {
				fmt.Fprintln(w, "No active accounts.")
				return nil
			}
			fmt.Fprintf(w, "%-14s  %-30s  %s\n", "ACCOUNT ID", "NAME", "EMAIL")
			fmt.Fprintln(w, strings.Repeat("-", 70))
			for _, acct := range accts {
				fmt.Fprintf(w, "%-14s  %-30s  %s\n", acct.ID, acct.Name, acct.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: json or table")
	return cmd
}

func newExplainCmd(a *app) *cobra.Command {
	var (
		from   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "explain <bucket>",
		Short: "Explain a bucket's findings with their HIPAA controls and fixes",
		Long: "Reads a scan result from --from (a ScanResult or archived record JSON file) " +
			"or, when omitted, the latest archived scan in results_bucket.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]

			var (
				result *models.ScanResult
				err    error
			)
			if from != "" {
				result, err = readResultFile(from)
			} else {
				result, err = a.latestArchived(cmd)
			}
			if err != nil {
				return err
			}

			rec := render.FindBucket(result.Buckets, bucket)
			w := cmd.OutOrStdout()
			if format == "json" {
				return render.WriteExplainJSON(w, rec, bucket)
			}
			if rec == nil {
				return fmt.Errorf("no bucket named %s in scan result", bucket)
			}
			render.RenderBucketExplanation(w, *rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Scan result JSON file (default: latest archived scan)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: json or table")
	return cmd
}

func (a *app) latestArchived(cmd *cobra.Command) (*models.ScanResult, error) {
	if a.cfg.ResultsBucket == "" {
		return nil, errors.New("no --from file and no results_bucket configured")
	}
	profile, err := a.loadProfile(cmd.Context())
	if err != nil {
		return nil, err
	}
	rec, err := a.deps.newArchive(profile.Config, a.cfg.ResultsBucket, a.log).Latest(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &rec.Result, nil
}

// readResultFile accepts either a bare ScanResult or an archive record
// wrapping one under "result".
func readResultFile(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result file %q: %w", path, err)
	}
	var wrapped struct {
		Result *json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode result file %q: %w", path, err)
	}
	if wrapped.Result != nil {
		var rec archive.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode record %q: %w", path, err)
		}
		return &rec.Result, nil
	}
	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result file %q: %w", path, err)
	}
	return &result, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Settings are not needed to print the version.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

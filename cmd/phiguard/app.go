package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/phiguard/internal/archive"
	"github.com/pankaj-dahiya-devops/phiguard/internal/auditlog"
	"github.com/pankaj-dahiya-devops/phiguard/internal/config"
	"github.com/pankaj-dahiya-devops/phiguard/internal/engine"
	"github.com/pankaj-dahiya-devops/phiguard/internal/logger"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/common"
	awss3 "github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/s3"
	"github.com/pankaj-dahiya-devops/phiguard/internal/rulepacks/hipaa"
	"github.com/pankaj-dahiya-devops/phiguard/internal/rules"
)

// deps are the AWS-facing constructors. Tests swap them for fakes.
type deps struct {
	provider   common.AWSClientProvider
	newStore   func(cfg aws.Config) engine.Storage
	newArchive func(cfg aws.Config, bucket string, log zerolog.Logger) *archive.Archive
	newAudit   func(cfg aws.Config, table string, log zerolog.Logger) *auditlog.Log
}

func defaultDeps() *deps {
	return &deps{
		provider: common.NewDefaultAWSClientProvider(),
		newStore: func(cfg aws.Config) engine.Storage {
			return awss3.NewStoreFromConfig(cfg)
		},
		newArchive: archive.NewFromConfig,
		newAudit:   auditlog.NewFromConfig,
	}
}

// app is the state shared by every command once the root has loaded
// settings.
type app struct {
	deps         *deps
	settingsPath string
	cfg          *config.Config
	log          zerolog.Logger
}

// load resolves settings from file, env and the command's flags, then builds
// the logger on the command's stderr.
func (a *app) load(cmd *cobra.Command) error {
	loader := config.NewLoader(a.settingsPath)
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(cmd.ErrOrStderr(), logger.Options{
		Level:  cfg.LogLevel,
		JSON:   cfg.JSONLogs(),
		Caller: logger.Verbose(cfg.LogLevel),
	})
	return nil
}

func (a *app) loadProfile(ctx context.Context) (*common.ProfileConfig, error) {
	return a.deps.provider.LoadProfile(ctx, a.cfg.Profile, a.cfg.Region)
}

func newRegistry() rules.RuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	for _, r := range hipaa.New() {
		reg.Register(r)
	}
	return reg
}

// runLocal runs req against the profile's own account.
func (a *app) runLocal(ctx context.Context, profile *common.ProfileConfig, req engine.Request) models.AccountResult {
	log := a.log.With().Str("account", profile.AccountID).Logger()
	runner := engine.NewRunner(a.deps.newStore(profile.Config), newRegistry(), log)
	return models.AccountResult{AccountID: profile.AccountID, Result: *runner.Run(ctx, req)}
}

// runAccounts runs req in each account through an assumed role.
func (a *app) runAccounts(ctx context.Context, profile *common.ProfileConfig, accounts []string, req engine.Request) []models.AccountResult {
	creds := a.deps.provider.CredentialProvider(profile, a.cfg.RoleName)
	factory := func(s *common.ScopedSession) engine.Storage { return a.deps.newStore(s.Config) }
	runner := engine.NewAccountRunnerWithFactory(creds, factory, newRegistry(), a.log)
	return runner.RunAccounts(ctx, accounts, req)
}

// persist archives each result and records its fixes in the audit log.
// Failures are logged and returned joined; results are never altered.
func (a *app) persist(ctx context.Context, profile *common.ProfileConfig, results []models.AccountResult, toArchive, toAudit bool) error {
	if toArchive && a.cfg.ResultsBucket == "" {
		return errors.New("archiving requires results_bucket to be set")
	}
	if toAudit && a.cfg.AuditTable == "" {
		return errors.New("audit logging requires audit_table to be set")
	}

	var (
		arch *archive.Archive
		logs *auditlog.Log
		errs []error
	)
	if toArchive {
		arch = a.deps.newArchive(profile.Config, a.cfg.ResultsBucket, a.log)
	}
	if toAudit {
		logs = a.deps.newAudit(profile.Config, a.cfg.AuditTable, a.log)
	}

	for i := range results {
		ar := &results[i]
		rec := archive.NewRecord(ar.AccountID, &ar.Result)
		if arch != nil {
			if _, err := arch.Save(ctx, rec); err != nil {
				a.log.Error().Err(err).Str("account", ar.AccountID).Msg("archive failed")
				errs = append(errs, err)
			}
		}
		if logs != nil && ar.Result.Remediated() {
			if err := logs.Record(ctx, ar.AccountID, rec.RunID, ar.Result.Fixes); err != nil {
				a.log.Error().Err(err).Str("account", ar.AccountID).Msg("audit log incomplete")
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/common"
	awss3 "github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/s3"
	"github.com/pankaj-dahiya-devops/phiguard/internal/rules"
)

// StoreFactory builds the Storage used for one account's session.
// Injection point: tests return fake-backed stores.
type StoreFactory func(session *common.ScopedSession) Storage

// DefaultStoreFactory backs Storage with the real S3 client.
func DefaultStoreFactory(session *common.ScopedSession) Storage {
	return awss3.NewStoreFromConfig(session.Config)
}

// AccountRunner runs one Request per account, each with its own session.
type AccountRunner struct {
	creds    common.CredentialProvider
	newStore StoreFactory
	registry rules.RuleRegistry
	log      zerolog.Logger
}

// NewAccountRunner returns an AccountRunner using the real S3 client.
func NewAccountRunner(creds common.CredentialProvider, registry rules.RuleRegistry, log zerolog.Logger) *AccountRunner {
	return NewAccountRunnerWithFactory(creds, DefaultStoreFactory, registry, log)
}

// NewAccountRunnerWithFactory returns an AccountRunner building stores with f.
func NewAccountRunnerWithFactory(creds common.CredentialProvider, f StoreFactory, registry rules.RuleRegistry, log zerolog.Logger) *AccountRunner {
	return &AccountRunner{creds: creds, newStore: f, registry: registry, log: log}
}

// RunAccounts runs req in every account in order. A session that cannot be
// obtained yields an errored result for that account; the others still run.
func (a *AccountRunner) RunAccounts(ctx context.Context, accounts []string, req Request) []models.AccountResult {
	results := make([]models.AccountResult, 0, len(accounts))
	for _, id := range accounts {
		log := a.log.With().Str("account", id).Logger()

		session, err := a.creds.SessionFor(ctx, id)
		if err != nil {
			log.Error().Err(err).Msg("no session for account")
			results = append(results, models.AccountResult{
				AccountID: id,
				Result: models.ScanResult{
					Buckets: []models.BucketRecord{},
					Error:   &models.ScanError{Message: err.Error()},
				},
			})
			continue
		}

		res := NewRunner(a.newStore(session), a.registry, log).Run(ctx, req)
		results = append(results, models.AccountResult{AccountID: id, Result: *res})
	}
	return results
}

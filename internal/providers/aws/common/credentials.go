package common

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
)

const (
	// DefaultRemediationRoleName is the role assumed in target accounts when
	// no role name is configured.
	DefaultRemediationRoleName = "PHIGuardRemediationRole"

	// RemediationSessionName tags every assumed-role session so the target
	// account's CloudTrail attributes calls to this tool.
	RemediationSessionName = "phiguard-remediation"

	defaultSessionDuration = 15 * time.Minute
)

var accountIDPattern = regexp.MustCompile(`^\d{12}$`)

// ScopedSession is a short-lived credential session for one account. It is
// used for every call against that account's buckets within one run and is
// never reused across runs.
type ScopedSession struct {
	AccountID string
	RoleARN   string
	Config    aws.Config
}

// CredentialProvider exchanges an account identifier for a scoped session.
type CredentialProvider interface {
	SessionFor(ctx context.Context, accountID string) (*ScopedSession, error)
}

// AssumeRoleCredentialProvider obtains sessions through STS AssumeRole on
// arn:aws:iam::<account>:role/<roleName>.
type AssumeRoleCredentialProvider struct {
	base     aws.Config
	sts      STSClient
	roleName string
	duration time.Duration
}

// NewAssumeRoleCredentialProvider returns a provider that assumes roleName
// using stsClient. An empty roleName selects DefaultRemediationRoleName.
func NewAssumeRoleCredentialProvider(base aws.Config, stsClient STSClient, roleName string) *AssumeRoleCredentialProvider {
	if roleName == "" {
		roleName = DefaultRemediationRoleName
	}
	return &AssumeRoleCredentialProvider{
		base:     base,
		sts:      stsClient,
		roleName: roleName,
		duration: defaultSessionDuration,
	}
}

// RoleARN returns the role ARN assumed for accountID.
func (p *AssumeRoleCredentialProvider) RoleARN(accountID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, p.roleName)
}

// SessionFor assumes the remediation role in accountID. Credentials are
// retrieved eagerly so that a denied AssumeRole surfaces here rather than on
// the first S3 call.
func (p *AssumeRoleCredentialProvider) SessionFor(ctx context.Context, accountID string) (*ScopedSession, error) {
	if !accountIDPattern.MatchString(accountID) {
		return nil, fmt.Errorf("invalid AWS account ID %q: must be 12 digits", accountID)
	}
	roleARN := p.RoleARN(accountID)

	assume := stscreds.NewAssumeRoleProvider(p.sts, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = RemediationSessionName
		o.Duration = p.duration
	})

	cfg := p.base.Copy()
	cfg.Credentials = aws.NewCredentialsCache(assume)

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("assume role %s: %w", roleARN, err)
	}

	return &ScopedSession{
		AccountID: accountID,
		RoleARN:   roleARN,
		Config:    cfg,
	}, nil
}

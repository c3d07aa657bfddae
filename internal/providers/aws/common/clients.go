package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used for identity resolution and
// cross-account role assumption. It satisfies stscreds.AssumeRoleAPIClient.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)

	AssumeRole(
		ctx context.Context,
		params *sts.AssumeRoleInput,
		optFns ...func(*sts.Options),
	) (*sts.AssumeRoleOutput, error)
}

// OrganizationsClient is the subset of AWS Organizations operations used to
// discover member accounts. It embeds ListAccountsAPIClient so the SDK
// paginator can be used directly.
type OrganizationsClient interface {
	orgsvc.ListAccountsAPIClient
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds fully initialised account-level AWS service clients. All
// fields are interfaces so they can be replaced with mocks in tests without
// importing the AWS SDK in test files.
type ClientSet struct {
	STS           STSClient
	Organizations OrganizationsClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. It constructs real AWS SDK
// clients from cfg. Organizations is always pointed at us-east-1 because its
// API endpoint only lives in that region.
func NewClientSet(cfg aws.Config) *ClientSet {
	orgCfg := cfg.Copy()
	orgCfg.Region = "us-east-1"

	return &ClientSet{
		STS:           sts.NewFromConfig(cfg),
		Organizations: orgsvc.NewFromConfig(orgCfg),
	}
}

package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. It is the unit passed between provider
// functions and into the engine.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the home region for this profile configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised account-level service clients.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations and hands out scoped sessions
// for other accounts. It is the sole entry point for AWS credential
// management across the provider layer.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile.
	// Pass an empty string to load the default profile. region overrides the
	// profile's configured region when non-empty.
	LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error)

	// CredentialProvider returns a CredentialProvider that assumes roleName in
	// target accounts using the profile's own credentials.
	CredentialProvider(cfg *ProfileConfig, roleName string) CredentialProvider
}

package common

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeSTS struct {
	account   string
	identErr  error
	assumeErr error
	assumed   []*sts.AssumeRoleInput
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.identErr != nil {
		return nil, f.identErr
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

func (f *fakeSTS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.assumed = append(f.assumed, in)
	if f.assumeErr != nil {
		return nil, f.assumeErr
	}
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIAEXAMPLE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(time.Now().Add(15 * time.Minute)),
		},
	}, nil
}

type fakeOrgs struct {
	pages [][]orgtypes.Account
	err   error
	calls int
}

func (f *fakeOrgs) ListAccounts(_ context.Context, in *orgsvc.ListAccountsInput, _ ...func(*orgsvc.Options)) (*orgsvc.ListAccountsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := 0
	if in.NextToken != nil {
		idx = int((*in.NextToken)[0] - '0')
	}
	f.calls++
	out := &orgsvc.ListAccountsOutput{Accounts: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.NextToken = aws.String(string(rune('0' + idx + 1)))
	}
	return out, nil
}

// ── AssumeRoleCredentialProvider ─────────────────────────────────────────────

func TestSessionFor_AssumesRemediationRole(t *testing.T) {
	stsClient := &fakeSTS{}
	p := NewAssumeRoleCredentialProvider(aws.Config{Region: "us-east-1"}, stsClient, "")

	sess, err := p.SessionFor(context.Background(), "123456789012")
	if err != nil {
		t.Fatalf("SessionFor: %v", err)
	}
	wantARN := "arn:aws:iam::123456789012:role/" + DefaultRemediationRoleName
	if sess.RoleARN != wantARN {
		t.Errorf("RoleARN = %q; want %q", sess.RoleARN, wantARN)
	}
	if sess.AccountID != "123456789012" {
		t.Errorf("AccountID = %q", sess.AccountID)
	}
	if len(stsClient.assumed) != 1 {
		t.Fatalf("AssumeRole calls = %d; want 1", len(stsClient.assumed))
	}
	in := stsClient.assumed[0]
	if aws.ToString(in.RoleArn) != wantARN {
		t.Errorf("AssumeRole RoleArn = %q", aws.ToString(in.RoleArn))
	}
	if aws.ToString(in.RoleSessionName) != RemediationSessionName {
		t.Errorf("RoleSessionName = %q; want %q", aws.ToString(in.RoleSessionName), RemediationSessionName)
	}

	creds, err := sess.Config.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "ASIAEXAMPLE" {
		t.Errorf("AccessKeyID = %q; want ASIAEXAMPLE", creds.AccessKeyID)
	}
}

func TestSessionFor_CustomRoleName(t *testing.T) {
	p := NewAssumeRoleCredentialProvider(aws.Config{}, &fakeSTS{}, "AuditRole")
	if got := p.RoleARN("210987654321"); got != "arn:aws:iam::210987654321:role/AuditRole" {
		t.Errorf("RoleARN = %q", got)
	}
}

func TestSessionFor_InvalidAccountID(t *testing.T) {
	stsClient := &fakeSTS{}
	p := NewAssumeRoleCredentialProvider(aws.Config{}, stsClient, "")
	for _, id := range []string{"", "12345", "abcdefghijkl", "1234567890123"} {
		if _, err := p.SessionFor(context.Background(), id); err == nil {
			t.Errorf("SessionFor(%q): want error", id)
		}
	}
	if len(stsClient.assumed) != 0 {
		t.Errorf("AssumeRole must not be called for invalid IDs; got %d calls", len(stsClient.assumed))
	}
}

func TestSessionFor_AssumeRoleDenied(t *testing.T) {
	p := NewAssumeRoleCredentialProvider(aws.Config{}, &fakeSTS{assumeErr: errors.New("AccessDenied")}, "")
	_, err := p.SessionFor(context.Background(), "123456789012")
	if err == nil {
		t.Fatal("want error when AssumeRole is denied")
	}
	if !strings.Contains(err.Error(), "arn:aws:iam::123456789012:role/") {
		t.Errorf("error should name the role ARN; got %v", err)
	}
}

// ── ListActiveAccounts ───────────────────────────────────────────────────────

func TestListActiveAccounts_PaginatesAndFiltersActive(t *testing.T) {
	orgs := &fakeOrgs{pages: [][]orgtypes.Account{
		{
			{Id: aws.String("111111111111"), Name: aws.String("prod"), Status: orgtypes.AccountStatusActive},
			{Id: aws.String("222222222222"), Name: aws.String("old"), Status: orgtypes.AccountStatusSuspended},
		},
		{
			{Id: aws.String("333333333333"), Name: aws.String("dev"), Status: orgtypes.AccountStatusActive},
		},
	}}

	got, err := ListActiveAccounts(context.Background(), orgs)
	if err != nil {
		t.Fatalf("ListActiveAccounts: %v", err)
	}
	if orgs.calls != 2 {
		t.Errorf("ListAccounts calls = %d; want 2", orgs.calls)
	}
	if len(got) != 2 || got[0].ID != "111111111111" || got[1].ID != "333333333333" {
		t.Errorf("accounts = %+v; want prod and dev", got)
	}
}

func TestListActiveAccounts_Error(t *testing.T) {
	if _, err := ListActiveAccounts(context.Background(), &fakeOrgs{err: errors.New("AWSOrganizationsNotInUseException")}); err == nil {
		t.Error("want error from ListAccounts")
	}
}

// ── LoadProfile ──────────────────────────────────────────────────────────────

func isolateAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
}

func TestLoadProfile_ResolvesAccountAndDefaultsRegion(t *testing.T) {
	isolateAWSEnv(t)
	stsClient := &fakeSTS{account: "111122223333"}
	p := NewDefaultAWSClientProviderWithFactory(func(aws.Config) *ClientSet {
		return &ClientSet{STS: stsClient}
	})

	pc, err := p.LoadProfile(context.Background(), "", "")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if pc.AccountID != "111122223333" {
		t.Errorf("AccountID = %q", pc.AccountID)
	}
	if pc.ProfileName != "default" {
		t.Errorf("ProfileName = %q; want default", pc.ProfileName)
	}
	if pc.Region != "us-east-1" {
		t.Errorf("Region = %q; want us-east-1 fallback", pc.Region)
	}
}

func TestLoadProfile_RegionOverride(t *testing.T) {
	isolateAWSEnv(t)
	p := NewDefaultAWSClientProviderWithFactory(func(aws.Config) *ClientSet {
		return &ClientSet{STS: &fakeSTS{account: "111122223333"}}
	})
	pc, err := p.LoadProfile(context.Background(), "", "eu-west-1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if pc.Region != "eu-west-1" {
		t.Errorf("Region = %q; want eu-west-1", pc.Region)
	}
}

func TestLoadProfile_IdentityFailure(t *testing.T) {
	isolateAWSEnv(t)
	p := NewDefaultAWSClientProviderWithFactory(func(aws.Config) *ClientSet {
		return &ClientSet{STS: &fakeSTS{identErr: errors.New("ExpiredToken")}}
	})
	if _, err := p.LoadProfile(context.Background(), "", ""); err == nil {
		t.Error("want error when GetCallerIdentity fails")
	}
}

package common

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// OrgAccount is an AWS Organizations member account.
type OrgAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListActiveAccounts pages through organizations:ListAccounts and returns the
// ACTIVE member accounts in API order. Suspended and pending-closure accounts
// cannot assume roles and are left out.
func ListActiveAccounts(ctx context.Context, client OrganizationsClient) ([]OrgAccount, error) {
	var accounts []OrgAccount
	pager := orgsvc.NewListAccountsPaginator(client, &orgsvc.ListAccountsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list organization accounts: %w", err)
		}
		for _, a := range page.Accounts {
			if a.Status != orgtypes.AccountStatusActive {
				continue
			}
			accounts = append(accounts, OrgAccount{
				ID:    aws.ToString(a.Id),
				Name:  aws.ToString(a.Name),
				Email: aws.ToString(a.Email),
			})
		}
	}
	return accounts, nil
}

package awsapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// ListAllAccounts drains ListAccounts pagination and returns every account
// in the institution's organization.
func ListAllAccounts(ctx context.Context, api OrganizationsAPI) ([]orgtypes.Account, error) {
	var accounts []orgtypes.Account
	var nextToken *string
	for {
		out, err := api.ListAccounts(ctx, &organizations.ListAccountsInput{NextToken: nextToken})
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, out.Accounts...)
		if out.NextToken == nil {
			return accounts, nil
		}
		nextToken = out.NextToken
	}
}

// ResourceTags fetches the Organizations tags for an account, OU or root
// as a plain map. Missing tags are not an error.
func ResourceTags(ctx context.Context, api OrganizationsAPI, resourceID string) (map[string]string, error) {
	tags := make(map[string]string)
	var nextToken *string
	for {
		out, err := api.ListTagsForResource(ctx, &organizations.ListTagsForResourceInput{
			ResourceId: aws.String(resourceID),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, err
		}
		for _, tag := range out.Tags {
			tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
		if out.NextToken == nil {
			return tags, nil
		}
		nextToken = out.NextToken
	}
}

package orgs

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

const institutionResourcePrefix = "institution://institutions/"

// institutionResourceHandler resolves the institution://institutions/{id}
// resource. The account ID carries no tenant hint, so every configured
// institution is tried until one organization knows the account.
func institutionResourceHandler(sc *server.ServerContext) mcpserver.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		accountID := strings.TrimPrefix(request.Params.URI, institutionResourcePrefix)
		if accountID == "" || accountID == request.Params.URI {
			return nil, envelope.Errorf(envelope.KindInvalidArgument,
				"resource URI must look like %s<account-id>", institutionResourcePrefix)
		}

		for _, institution := range sc.Store().Names() {
			payload, err := describeAccountResource(ctx, sc, institution, accountID)
			if err != nil {
				sc.Logger().Debug("account not resolvable via institution",
					logging.KeyInstitution, institution, "account_id", accountID, logging.KeyError, err.Error())
				continue
			}
			text, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      request.Params.URI,
					MIMEType: "application/json",
					Text:     string(text),
				},
			}, nil
		}

		return nil, envelope.Errorf(envelope.KindInvalidArgument,
			"account %q not found in any configured institution", accountID)
	}
}

func describeAccountResource(ctx context.Context, sc *server.ServerContext, institution, accountID string) (map[string]any, error) {
	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}
	out, err := bundle.Organizations.DescribeAccount(ctx, &organizations.DescribeAccountInput{
		AccountId: aws.String(accountID),
	})
	if err != nil {
		return nil, err
	}
	account := out.Account
	if account == nil {
		return nil, envelope.Errorf(envelope.KindAWSAPI, "empty DescribeAccount response")
	}

	tags, err := awsapi.ResourceTags(ctx, bundle.Organizations, accountID)
	if err != nil {
		tags = map[string]string{}
	}

	return map[string]any{
		"id":               aws.ToString(account.Id),
		"name":             aws.ToString(account.Name),
		"email":            aws.ToString(account.Email),
		"status":           string(account.Status),
		"joined_method":    string(account.JoinedMethod),
		"joined_timestamp": formatTime(account.JoinedTimestamp),
		"type":             accountTypeFromTags(tags, "unknown"),
		"description":      tagOrDefault(tags, "Description", "AWS Account "+aws.ToString(account.Name)),
		"budget":           tagOrDefault(tags, "Budget", "Not specified"),
		"tags":             tags,
		"metadata": map[string]any{
			"accessed_via_institution": institution,
			"retrieved_at":             time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

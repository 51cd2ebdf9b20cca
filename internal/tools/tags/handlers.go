// Package tags implements the get_tags tool: resource tag retrieval with
// budget metadata extraction.
package tags

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// budgetTagKeys maps tag keys to the budget_info fields they populate.
var budgetTagKeys = map[string]string{
	"Budget":     "budget",
	"CostCenter": "cost_center",
	"Project":    "project",
	"Owner":      "owner",
}

// handleGetTags fetches a resource's tags through the Resource Groups
// Tagging API, falling back to the Organizations tagging surface for
// organization-scoped ARNs, and extracts budget metadata from them.
func handleGetTags(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")
	resourceArn, err := tools.RequireString(request, "resource_arn")
	if err != nil {
		return nil, err
	}
	resourceType := tools.OptionalString(request, "resource_type")

	arnParts := strings.Split(resourceArn, ":")
	if len(arnParts) < 6 {
		return nil, envelope.Errorf(envelope.KindInvalidArgument,
			"invalid ARN format: %q", resourceArn)
	}
	service := arnParts[2]
	region := arnParts[3]
	resourceID := arnParts[5]

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}

	resourceTags := fetchViaTaggingAPI(ctx, sc, bundle, resourceArn)

	// Organization resources (accounts, OUs, roots) are not covered by the
	// Resource Groups Tagging API.
	if len(resourceTags) == 0 && service == "organizations" {
		resourceTags, err = awsapi.ResourceTags(ctx, bundle.Organizations, organizationResourceID(resourceID))
		if err != nil {
			return nil, err
		}
	}
	if resourceTags == nil {
		resourceTags = map[string]string{}
	}

	budgetInfo := map[string]any{}
	for tagKey, field := range budgetTagKeys {
		if value, ok := resourceTags[tagKey]; ok {
			budgetInfo[field] = value
		}
	}

	if resourceType == "" {
		resourceType = service
	}
	metadata := map[string]any{
		"institution":     institution,
		"resource_arn":    resourceArn,
		"service":         service,
		"region":          region,
		"resource_type":   resourceType,
		"tag_count":       len(resourceTags),
		"budget_info":     budgetInfo,
		"has_budget_tags": len(budgetInfo) > 0,
	}

	return map[string]any{
		"institution":  institution,
		"resource_arn": resourceArn,
		"tags":         resourceTags,
		"metadata":     metadata,
		"budget_info":  budgetInfo,
	}, nil
}

// fetchViaTaggingAPI is best effort: a failure here only means the
// service-specific fallback gets its chance.
func fetchViaTaggingAPI(ctx context.Context, sc *server.ServerContext, bundle *awsapi.Bundle, resourceArn string) map[string]string {
	out, err := bundle.Tagging.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
		ResourceARNList: []string{resourceArn},
	})
	if err != nil {
		sc.Logger().Warn("resource groups tagging lookup failed",
			logging.KeyInstitution, bundle.Institution, logging.KeyError, err.Error())
		return nil
	}
	if len(out.ResourceTagMappingList) == 0 {
		return nil
	}
	mapping := out.ResourceTagMappingList[0]
	resourceTags := make(map[string]string, len(mapping.Tags))
	for _, tag := range mapping.Tags {
		resourceTags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return resourceTags
}

// organizationResourceID strips the path prefix from an organization ARN's
// resource part: "account/o-xyz/111122223333" becomes "111122223333".
func organizationResourceID(resourceID string) string {
	if idx := strings.LastIndex(resourceID, "/"); idx >= 0 {
		return resourceID[idx+1:]
	}
	return resourceID
}

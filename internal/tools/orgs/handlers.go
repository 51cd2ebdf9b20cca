// Package orgs implements the AWS Organizations tools: institution account
// listings, the organizational-unit project inventory and the institution
// resource template.
package orgs

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// handleGetInstitutions lists the AWS accounts of one institution's
// organization, or the configured institution names when no institution is
// given.
func handleGetInstitutions(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")
	if institution == "" {
		names := sc.Store().Names()
		return map[string]any{
			"available_institutions": names,
			"institution_count":      len(names),
			"description":            "Available institutions from configuration",
		}, nil
	}

	institutionType := tools.OptionalString(request, "institution_type")
	includeDetails := tools.OptionalBool(request, "include_details", false)

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}

	accounts, err := awsapi.ListAllAccounts(ctx, bundle.Organizations)
	if err != nil {
		return nil, err
	}

	institutions := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		accountID := aws.ToString(account.Id)
		tags, err := awsapi.ResourceTags(ctx, bundle.Organizations, accountID)
		if err != nil {
			sc.Logger().Warn("could not fetch account tags",
				logging.KeyInstitution, institution, "account_id", accountID, logging.KeyError, err.Error())
			tags = map[string]string{}
		}

		accountType := accountTypeFromTags(tags, "unknown")
		if institutionType != "" && !strings.EqualFold(accountType, institutionType) {
			continue
		}

		record := map[string]any{
			"id":          accountID,
			"name":        aws.ToString(account.Name),
			"type":        accountType,
			"description": tagOrDefault(tags, "Description", "AWS Account "+aws.ToString(account.Name)),
			"status":      string(account.Status),
		}
		if includeDetails {
			record["email"] = aws.ToString(account.Email)
			record["joined_method"] = string(account.JoinedMethod)
			record["joined_timestamp"] = formatTime(account.JoinedTimestamp)
			record["budget"] = tagOrDefault(tags, "Budget", "Not specified")
			record["tags"] = tags
		}
		institutions = append(institutions, record)
	}

	return map[string]any{
		"institution":      institution,
		"institutions":     institutions,
		"count":            len(institutions),
		"total_accounts":   len(accounts),
		"filter_applied":   institutionType,
		"details_included": includeDetails,
	}, nil
}

// orgUnit is one organizational unit discovered by the recursive walk,
// annotated with its depth and parent.
type orgUnit struct {
	ID       string
	Arn      string
	Name     string
	Level    int
	ParentID string
}

// handleGetProjects builds the full project inventory for an institution:
// every account and organizational unit with OU paths, tags, budgets and
// summary statistics.
func handleGetProjects(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")
	institutionID, err := tools.RequireString(request, "institution_id")
	if err != nil {
		return nil, err
	}
	includeAWSDetails := tools.OptionalBool(request, "include_aws_details", false)

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}
	api := bundle.Organizations

	orgOut, err := api.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
	if err != nil {
		return nil, err
	}
	organization := orgOut.Organization

	rootsOut, err := api.ListRoots(ctx, &organizations.ListRootsInput{})
	if err != nil {
		return nil, err
	}
	if len(rootsOut.Roots) == 0 {
		return nil, envelope.Errorf(envelope.KindAWSAPI, "no organization roots found")
	}
	rootID := aws.ToString(rootsOut.Roots[0].Id)

	accounts, err := awsapi.ListAllAccounts(ctx, api)
	if err != nil {
		return nil, err
	}

	var target *orgtypes.Account
	for i := range accounts {
		if aws.ToString(accounts[i].Id) == institutionID {
			target = &accounts[i]
			break
		}
	}
	if target == nil {
		hint := make([]string, 0, 5)
		for _, account := range accounts {
			if len(hint) == 5 {
				break
			}
			hint = append(hint, aws.ToString(account.Id))
		}
		return nil, envelope.Errorf(envelope.KindInvalidArgument,
			"account %q not found in institution %q, available accounts: %s",
			institutionID, institution, strings.Join(hint, ", "))
	}

	allOUs := collectOrgUnits(ctx, sc, api, rootID, 0)
	ouByID := make(map[string]orgUnit, len(allOUs))
	for _, ou := range allOUs {
		ouByID[ou.ID] = ou
	}

	projects := make([]map[string]any, 0, len(accounts)+len(allOUs))

	for _, account := range accounts {
		accountID := aws.ToString(account.Id)
		tags, err := awsapi.ResourceTags(ctx, api, accountID)
		if err != nil {
			tags = map[string]string{}
		}

		parentID := rootID
		var ouPath []string
		if parentsOut, err := api.ListParents(ctx, &organizations.ListParentsInput{ChildId: aws.String(accountID)}); err == nil && len(parentsOut.Parents) > 0 {
			parent := parentsOut.Parents[0]
			parentID = aws.ToString(parent.Id)
			if parent.Type == orgtypes.ParentTypeOrganizationalUnit {
				ouPath = unitPath(ouByID, parentID, rootID)
			}
		}

		record := map[string]any{
			"id":                accountID,
			"name":              aws.ToString(account.Name),
			"type":              "aws_account",
			"email":             aws.ToString(account.Email),
			"status":            string(account.Status),
			"joined_method":     string(account.JoinedMethod),
			"joined_timestamp":  formatTime(account.JoinedTimestamp),
			"description":       tagOrDefault(tags, "Description", "AWS Account: "+aws.ToString(account.Name)),
			"budget":            tagOrDefault(tags, "Budget", "Not specified"),
			"services":          splitServices(tags["Services"]),
			"ou_path":           joinPath(ouPath),
			"parent_id":         parentID,
			"account_type":      accountTypeFromTags(tags, "standard"),
			"is_target_account": accountID == institutionID,
		}
		if includeAWSDetails {
			parentType := "ORGANIZATIONAL_UNIT"
			if parentID == rootID {
				parentType = "ROOT"
			}
			record["aws_details"] = map[string]any{
				"account_arn":  aws.ToString(account.Arn),
				"tags":         tags,
				"parent_type":  parentType,
				"ou_hierarchy": ouPath,
			}
		}
		projects = append(projects, record)
	}

	maxLevel := 0
	for _, ou := range allOUs {
		if ou.Level > maxLevel {
			maxLevel = ou.Level
		}

		tags, err := awsapi.ResourceTags(ctx, api, ou.ID)
		if err != nil {
			tags = map[string]string{}
		}

		var accountsInOU []orgtypes.Account
		if inOU, err := api.ListAccountsForParent(ctx, &organizations.ListAccountsForParentInput{ParentId: aws.String(ou.ID)}); err == nil {
			accountsInOU = inOU.Accounts
		}
		containsTarget := false
		for _, account := range accountsInOU {
			if aws.ToString(account.Id) == institutionID {
				containsTarget = true
				break
			}
		}

		var childOUs []orgUnit
		for _, candidate := range allOUs {
			if candidate.ParentID == ou.ID {
				childOUs = append(childOUs, candidate)
			}
		}

		record := map[string]any{
			"id":                      ou.ID,
			"name":                    ou.Name,
			"type":                    "organizational_unit",
			"description":             tagOrDefault(tags, "Description", "Organizational Unit: "+ou.Name),
			"budget":                  tagOrDefault(tags, "Budget", "Not specified"),
			"services":                splitServices(tags["Services"]),
			"level":                   ou.Level,
			"parent_id":               ou.ParentID,
			"ou_path":                 joinPath(unitPath(ouByID, ou.ID, rootID)),
			"account_count":           len(accountsInOU),
			"child_ou_count":          len(childOUs),
			"contains_target_account": containsTarget,
		}
		if includeAWSDetails {
			inOU := make([]map[string]string, 0, len(accountsInOU))
			for _, account := range accountsInOU {
				inOU = append(inOU, map[string]string{"id": aws.ToString(account.Id), "name": aws.ToString(account.Name)})
			}
			children := make([]map[string]string, 0, len(childOUs))
			for _, child := range childOUs {
				children = append(children, map[string]string{"id": child.ID, "name": child.Name})
			}
			record["aws_details"] = map[string]any{
				"ou_arn":         ou.Arn,
				"tags":           tags,
				"accounts_in_ou": inOU,
				"child_ous":      children,
			}
		}
		projects = append(projects, record)
	}

	accountCount := 0
	ouCount := 0
	totalBudget := 0.0
	budgetSpecified := 0
	for _, project := range projects {
		switch project["type"] {
		case "aws_account":
			accountCount++
		case "organizational_unit":
			ouCount++
		}
		if budget, ok := project["budget"].(string); ok && budget != "Not specified" {
			if value, ok := tools.ParseBudget(budget); ok {
				totalBudget += value
				budgetSpecified++
			}
		}
	}
	var totalBudgetValue any = "Not calculated"
	if budgetSpecified > 0 {
		totalBudgetValue = totalBudget
	}

	return map[string]any{
		"institution":      institution,
		"institution_id":   institutionID,
		"institution_name": aws.ToString(target.Name),
		"organization": map[string]any{
			"organization_id":      aws.ToString(organization.Id),
			"organization_arn":     aws.ToString(organization.Arn),
			"master_account_id":    aws.ToString(organization.MasterAccountId),
			"master_account_email": aws.ToString(organization.MasterAccountEmail),
			"feature_set":          string(organization.FeatureSet),
			"root_id":              rootID,
		},
		"projects": projects,
		"summary": map[string]any{
			"total_projects":         len(projects),
			"aws_accounts":           accountCount,
			"organizational_units":   ouCount,
			"total_budget":           totalBudgetValue,
			"budget_specified_count": budgetSpecified,
			"max_ou_level":           maxLevel,
		},
		"aws_details_included": includeAWSDetails,
	}, nil
}

// collectOrgUnits walks the OU tree depth first. Failures below one parent
// degrade that subtree, not the whole inventory.
func collectOrgUnits(ctx context.Context, sc *server.ServerContext, api awsapi.OrganizationsAPI, parentID string, level int) []orgUnit {
	var units []orgUnit
	var nextToken *string
	for {
		out, err := api.ListOrganizationalUnitsForParent(ctx, &organizations.ListOrganizationalUnitsForParentInput{
			ParentId:  aws.String(parentID),
			NextToken: nextToken,
		})
		if err != nil {
			sc.Logger().Warn("could not list organizational units",
				"parent_id", parentID, logging.KeyError, err.Error())
			return units
		}
		for _, ou := range out.OrganizationalUnits {
			unit := orgUnit{
				ID:       aws.ToString(ou.Id),
				Arn:      aws.ToString(ou.Arn),
				Name:     aws.ToString(ou.Name),
				Level:    level,
				ParentID: parentID,
			}
			units = append(units, unit)
			units = append(units, collectOrgUnits(ctx, sc, api, unit.ID, level+1)...)
		}
		if out.NextToken == nil {
			return units
		}
		nextToken = out.NextToken
	}
}

// unitPath builds the OU names from the root down to the given unit.
func unitPath(ouByID map[string]orgUnit, unitID, rootID string) []string {
	var path []string
	current := unitID
	for current != "" && current != rootID {
		ou, ok := ouByID[current]
		if !ok {
			break
		}
		path = append([]string{ou.Name}, path...)
		current = ou.ParentID
	}
	return path
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return "Root"
	}
	return strings.Join(path, " > ")
}

func accountTypeFromTags(tags map[string]string, fallback string) string {
	if v, ok := tags["Type"]; ok {
		return v
	}
	if v, ok := tags["InstitutionType"]; ok {
		return v
	}
	if v, ok := tags["AccountType"]; ok {
		return v
	}
	return fallback
}

func tagOrDefault(tags map[string]string, key, fallback string) string {
	if v, ok := tags[key]; ok && v != "" {
		return v
	}
	return fallback
}

func splitServices(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// Package budget implements the check_budget tool: Cost Explorer analysis
// of actual spend against the budgets tagged on institution accounts.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// defaultExcludedServices is subtracted from every cost query unless the
// caller overrides it. Tax entries say nothing about project behavior.
var defaultExcludedServices = []string{"Tax"}

// handleCheckBudget runs a cost analysis for one account or the whole
// organization. Cost data is always fetched fresh: spend moves daily and a
// stale answer is worse than a slow one.
func handleCheckBudget(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	institution := tools.OptionalString(request, "institution")
	projectID := tools.OptionalString(request, "project_id")
	period := tools.OptionalString(request, "period")
	budgetCheck := tools.OptionalBool(request, "budget_check", true)

	granularity := strings.ToUpper(tools.OptionalString(request, "granularity"))
	if granularity == "" {
		granularity = "DAILY"
	}
	if granularity != "DAILY" && granularity != "MONTHLY" {
		return nil, envelope.Errorf(envelope.KindInvalidArgument,
			"granularity must be DAILY or MONTHLY, got %q", granularity)
	}

	excludeServices, err := tools.OptionalStringSlice(request, "exclude_services")
	if err != nil {
		return nil, err
	}
	if excludeServices == nil {
		excludeServices = defaultExcludedServices
	}

	today := time.Now().UTC()
	start, end, err := analysisRange(today, period,
		tools.OptionalString(request, "start_date"), tools.OptionalString(request, "end_date"))
	if err != nil {
		return nil, err
	}
	if err := validateRange(today, start, end); err != nil {
		return nil, err
	}

	bundle, err := sc.Registry().Bundle(ctx, institution)
	if err != nil {
		return nil, err
	}

	accounts, err := awsapi.ListAllAccounts(ctx, bundle.Organizations)
	if err != nil {
		return nil, err
	}

	var accountIDs []string
	if projectID != "" {
		accountIDs = []string{projectID}
	} else {
		accountIDs = make([]string, 0, len(accounts))
		for _, account := range accounts {
			accountIDs = append(accountIDs, aws.ToString(account.Id))
		}
	}

	results, err := fetchCosts(ctx, bundle.CostExplorer, accountIDs, start, end, granularity, excludeServices)
	if err != nil {
		return nil, err
	}
	costs := processCosts(results)

	budgets := map[string]float64{}
	if budgetCheck {
		budgets = projectBudgets(ctx, sc, bundle.Organizations, accountIDs)
	}
	analysis := analyzeBudgets(costs, budgets)

	metadata := make(map[string]map[string]string, len(accounts))
	for _, account := range accounts {
		metadata[aws.ToString(account.Id)] = map[string]string{
			"name":   aws.ToString(account.Name),
			"email":  aws.ToString(account.Email),
			"status": string(account.Status),
		}
	}
	for _, project := range analysis.Projects {
		id := project["project_id"].(string)
		if meta, ok := metadata[id]; ok {
			project["project_name"] = meta["name"]
			project["project_email"] = meta["email"]
			project["project_status"] = meta["status"]
		} else {
			project["project_name"] = fmt.Sprintf("Account-%s", id)
		}
	}

	data := map[string]any{
		"institution": institution,
		"analysis_period": map[string]any{
			"start_date":        start.Format(dateLayout),
			"end_date":          end.Format(dateLayout),
			"granularity":       granularity,
			"excluded_services": excludeServices,
		},
		"summary":            analysis.Summary,
		"projects":           analysis.Projects,
		"institution_totals": institutionTotals(costs, analysis.Projects),
	}
	if len(analysis.Overbudget) > 0 {
		data["overbudget_projects"] = analysis.Overbudget
	}
	if projectID != "" {
		if costData, ok := costs[projectID]; ok {
			name := fmt.Sprintf("Account-%s", projectID)
			if meta, ok := metadata[projectID]; ok {
				name = meta["name"]
			}
			data["focused_project"] = map[string]any{
				"project_id":   projectID,
				"project_name": name,
				"cost_details": costDetails(costData),
			}
		}
	}
	return data, nil
}

func costDetails(c *accountCosts) map[string]any {
	return map[string]any{
		"total_cost":  c.TotalCost,
		"currency":    currencyOrDefault(c.Currency),
		"services":    c.Services,
		"daily_costs": c.DailyCosts,
	}
}

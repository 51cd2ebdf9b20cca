package budget

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/logging"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// accountCosts is the per-account aggregation of Cost Explorer results.
type accountCosts struct {
	TotalCost  float64
	Currency   string
	Services   map[string]float64
	DailyCosts map[string]float64
}

// fetchCosts queries Cost Explorer for unblended costs grouped by linked
// account and service, following NextPageToken until the result set is
// complete.
func fetchCosts(ctx context.Context, api awsapi.CostExplorerAPI, accountIDs []string, start, end time.Time, granularity string, excludeServices []string) ([]cetypes.ResultByTime, error) {
	var filter *cetypes.Expression
	if len(excludeServices) > 0 {
		filter = &cetypes.Expression{
			Not: &cetypes.Expression{
				Dimensions: &cetypes.DimensionValues{
					Key:    cetypes.DimensionService,
					Values: excludeServices,
				},
			},
		}
	}
	if len(accountIDs) > 0 {
		accountFilter := &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionLinkedAccount,
				Values: accountIDs,
			},
		}
		if filter != nil {
			filter = &cetypes.Expression{And: []cetypes.Expression{*filter, *accountFilter}}
		} else {
			filter = accountFilter
		}
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format(dateLayout)),
			End:   aws.String(end.Format(dateLayout)),
		},
		Granularity: cetypes.Granularity(granularity),
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("LINKED_ACCOUNT")},
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
		Filter: filter,
	}

	var results []cetypes.ResultByTime
	for {
		out, err := api.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, err
		}
		results = append(results, out.ResultsByTime...)
		if out.NextPageToken == nil {
			return results, nil
		}
		input.NextPageToken = out.NextPageToken
	}
}

// processCosts folds the grouped results into per-account totals with
// service and daily breakdowns.
func processCosts(results []cetypes.ResultByTime) map[string]*accountCosts {
	costs := make(map[string]*accountCosts)
	for _, result := range results {
		var date string
		if result.TimePeriod != nil {
			date = aws.ToString(result.TimePeriod.Start)
		}
		for _, group := range result.Groups {
			if len(group.Keys) < 2 {
				continue
			}
			accountID := group.Keys[0]
			service := group.Keys[1]
			metric, ok := group.Metrics["UnblendedCost"]
			if !ok {
				continue
			}
			amount, err := strconv.ParseFloat(aws.ToString(metric.Amount), 64)
			if err != nil {
				continue
			}

			entry, ok := costs[accountID]
			if !ok {
				entry = &accountCosts{
					Currency:   aws.ToString(metric.Unit),
					Services:   make(map[string]float64),
					DailyCosts: make(map[string]float64),
				}
				costs[accountID] = entry
			}
			entry.TotalCost += amount
			entry.Services[service] += amount
			entry.DailyCosts[date] += amount
		}
	}
	return costs
}

// projectBudgets reads each account's Budget tag. Missing or unparseable
// budgets are zero, which analyzeBudgets treats as "no budget set".
func projectBudgets(ctx context.Context, sc *server.ServerContext, api awsapi.OrganizationsAPI, accountIDs []string) map[string]float64 {
	budgets := make(map[string]float64, len(accountIDs))
	for _, accountID := range accountIDs {
		budgets[accountID] = 0
		resourceTags, err := awsapi.ResourceTags(ctx, api, accountID)
		if err != nil {
			sc.Logger().Warn("could not read budget tag",
				"account_id", accountID, logging.KeyError, err.Error())
			continue
		}
		raw, ok := resourceTags["Budget"]
		if !ok || raw == "Not specified" {
			continue
		}
		if value, ok := tools.ParseBudget(raw); ok {
			budgets[accountID] = value
		}
	}
	return budgets
}

// budgetAnalysis is the compared costs-versus-budgets view.
type budgetAnalysis struct {
	Projects   []map[string]any
	Overbudget []map[string]any
	Summary    map[string]any
}

// analyzeBudgets compares actual costs against the tagged budgets. A
// project is overbudget only when it has a budget and exceeds it: untagged
// projects never alarm.
func analyzeBudgets(costs map[string]*accountCosts, budgets map[string]float64) budgetAnalysis {
	accountIDs := make([]string, 0, len(costs))
	for id := range costs {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	analysis := budgetAnalysis{
		Projects:   make([]map[string]any, 0, len(accountIDs)),
		Overbudget: []map[string]any{},
	}
	totalCost := 0.0
	totalBudget := 0.0
	overbudgetCount := 0

	for _, accountID := range accountIDs {
		costData := costs[accountID]
		budget := budgets[accountID]
		actual := costData.TotalCost

		utilization := 0.0
		if budget > 0 {
			utilization = actual / budget * 100
		}
		status := "within_budget"
		if budget > 0 && actual > budget {
			status = "overbudget"
		}

		project := map[string]any{
			"project_id":         accountID,
			"budget":             budget,
			"actual_cost":        actual,
			"budget_status":      status,
			"budget_utilization": round2(utilization),
			"remaining_budget":   math.Max(0, budget-actual),
			"overage":            math.Max(0, actual-budget),
			"currency":           currencyOrDefault(costData.Currency),
			"cost_breakdown":     topServices(costData.Services, 5),
		}
		analysis.Projects = append(analysis.Projects, project)

		if status == "overbudget" {
			analysis.Overbudget = append(analysis.Overbudget, project)
			overbudgetCount++
		}
		totalCost += actual
		totalBudget += budget
	}

	summaryUtilization := 0.0
	if totalBudget > 0 {
		summaryUtilization = totalCost / totalBudget * 100
	}
	analysis.Summary = map[string]any{
		"total_cost":         round2(totalCost),
		"total_budget":       round2(totalBudget),
		"total_projects":     len(analysis.Projects),
		"overbudget_count":   overbudgetCount,
		"budget_utilization": round2(summaryUtilization),
		"remaining_budget":   round2(math.Max(0, totalBudget-totalCost)),
	}
	return analysis
}

// institutionTotals aggregates across every analyzed project.
func institutionTotals(costs map[string]*accountCosts, projects []map[string]any) map[string]any {
	totalCost := 0.0
	allServices := make(map[string]float64)
	for _, costData := range costs {
		totalCost += costData.TotalCost
		for service, cost := range costData.Services {
			allServices[service] += cost
		}
	}
	totalBudget := 0.0
	for _, project := range projects {
		if budget, ok := project["budget"].(float64); ok {
			totalBudget += budget
		}
	}

	utilization := 0.0
	if totalBudget > 0 {
		utilization = totalCost / totalBudget * 100
	}
	return map[string]any{
		"total_cost":         round2(totalCost),
		"total_budget":       round2(totalBudget),
		"remaining_budget":   round2(math.Max(0, totalBudget-totalCost)),
		"budget_utilization": round2(utilization),
		"top_services":       topServices(allServices, 10),
	}
}

// topServices returns the n most expensive services, largest first.
func topServices(services map[string]float64, n int) []map[string]any {
	type entry struct {
		service string
		cost    float64
	}
	entries := make([]entry, 0, len(services))
	for service, cost := range services {
		entries = append(entries, entry{service, cost})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].cost != entries[j].cost {
			return entries[i].cost > entries[j].cost
		}
		return entries[i].service < entries[j].service
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{"service": e.service, "cost": round2(e.cost)})
	}
	return out
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "USD"
	}
	return currency
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

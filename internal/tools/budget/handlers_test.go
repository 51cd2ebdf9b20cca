package budget

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/awsapi/awsapitest"
	"github.com/grnet/mcp-aws-orgs/internal/envelope"
	"github.com/grnet/mcp-aws-orgs/internal/server"
)

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func costGroup(accountID, service, amount string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{accountID, service},
		Metrics: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")},
		},
	}
}

// fakeCostExplorer spreads the results over two pages so the pagination
// path is exercised.
func fakeCostExplorer(t *testing.T, captured **costexplorer.GetCostAndUsageInput) *awsapitest.FakeCostExplorer {
	return &awsapitest.FakeCostExplorer{
		GetCostAndUsageFunc: func(ctx context.Context, params *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
			if captured != nil && *captured == nil {
				*captured = params
			}
			if params.NextPageToken == nil {
				return &costexplorer.GetCostAndUsageOutput{
					ResultsByTime: []cetypes.ResultByTime{{
						TimePeriod: &cetypes.DateInterval{Start: aws.String("2026-08-01"), End: aws.String("2026-08-02")},
						Groups: []cetypes.Group{
							costGroup("111111111111", "Amazon EC2", "80.0"),
							costGroup("222222222222", "AWS Lambda", "10.0"),
						},
					}},
					NextPageToken: aws.String("page-2"),
				}, nil
			}
			require.Equal(t, "page-2", aws.ToString(params.NextPageToken))
			return &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []cetypes.ResultByTime{{
					TimePeriod: &cetypes.DateInterval{Start: aws.String("2026-08-02"), End: aws.String("2026-08-03")},
					Groups: []cetypes.Group{
						costGroup("111111111111", "Amazon S3", "40.0"),
					},
				}},
			}, nil
		},
	}
}

func fakeBudgetOrganizations() *awsapitest.FakeOrganizations {
	return &awsapitest.FakeOrganizations{
		ListAccountsFunc: func(ctx context.Context, params *organizations.ListAccountsInput) (*organizations.ListAccountsOutput, error) {
			return &organizations.ListAccountsOutput{Accounts: []orgtypes.Account{
				{Id: aws.String("111111111111"), Name: aws.String("Research"), Email: aws.String("research@uni.example"), Status: orgtypes.AccountStatusActive},
				{Id: aws.String("222222222222"), Name: aws.String("Teaching"), Email: aws.String("teaching@uni.example"), Status: orgtypes.AccountStatusActive},
			}}, nil
		},
		ListTagsForResourceFunc: func(ctx context.Context, params *organizations.ListTagsForResourceInput) (*organizations.ListTagsForResourceOutput, error) {
			if aws.ToString(params.ResourceId) == "111111111111" {
				return &organizations.ListTagsForResourceOutput{Tags: []orgtypes.Tag{
					{Key: aws.String("Budget"), Value: aws.String("$100.00")},
				}}, nil
			}
			return &organizations.ListTagsForResourceOutput{}, nil
		},
	}
}

func budgetTestContext(t *testing.T, captured **costexplorer.GetCostAndUsageInput) *server.ServerContext {
	t.Helper()
	return awsapitest.NewServerContext(t, map[string]*awsapi.Bundle{
		"sandbox": {
			Institution:   "sandbox",
			Organizations: fakeBudgetOrganizations(),
			CostExplorer:  fakeCostExplorer(t, captured),
		},
	})
}

func TestCheckBudgetFullOrganization(t *testing.T) {
	var captured *costexplorer.GetCostAndUsageInput
	sc := budgetTestContext(t, &captured)

	data, err := handleCheckBudget(context.Background(), request(map[string]any{
		"institution": "sandbox",
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	require.NotNil(t, captured)
	assert.Equal(t, []string{"UnblendedCost"}, captured.Metrics)
	require.NotNil(t, captured.Filter, "default exclusions and account scoping build a filter")
	require.Len(t, captured.Filter.And, 2)
	assert.Equal(t, []string{"Tax"}, captured.Filter.And[0].Not.Dimensions.Values)
	assert.Equal(t, []string{"111111111111", "222222222222"}, captured.Filter.And[1].Dimensions.Values)

	period := payload["analysis_period"].(map[string]any)
	assert.Equal(t, "DAILY", period["granularity"])
	assert.Equal(t, []string{"Tax"}, period["excluded_services"])

	summary := payload["summary"].(map[string]any)
	assert.InDelta(t, 130.0, summary["total_cost"].(float64), 0.001)
	assert.InDelta(t, 100.0, summary["total_budget"].(float64), 0.001)
	assert.Equal(t, 1, summary["overbudget_count"])
	assert.Equal(t, 2, summary["total_projects"])
	assert.InDelta(t, 130.0, summary["budget_utilization"].(float64), 0.001)

	projects := payload["projects"].([]map[string]any)
	require.Len(t, projects, 2)

	research := projects[0]
	assert.Equal(t, "111111111111", research["project_id"])
	assert.Equal(t, "Research", research["project_name"])
	assert.Equal(t, "overbudget", research["budget_status"])
	assert.InDelta(t, 120.0, research["budget_utilization"].(float64), 0.001)
	assert.InDelta(t, 20.0, research["overage"].(float64), 0.001)
	assert.InDelta(t, 0.0, research["remaining_budget"].(float64), 0.001)
	breakdown := research["cost_breakdown"].([]map[string]any)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Amazon EC2", breakdown[0]["service"], "most expensive service first")

	teaching := projects[1]
	assert.Equal(t, "within_budget", teaching["budget_status"], "untagged projects never alarm")
	assert.InDelta(t, 0.0, teaching["budget_utilization"].(float64), 0.001)

	overbudget := payload["overbudget_projects"].([]map[string]any)
	require.Len(t, overbudget, 1)
	assert.Equal(t, "111111111111", overbudget[0]["project_id"])

	totals := payload["institution_totals"].(map[string]any)
	assert.InDelta(t, 130.0, totals["total_cost"].(float64), 0.001)
	topServices := totals["top_services"].([]map[string]any)
	require.Len(t, topServices, 3)
	assert.Equal(t, "Amazon EC2", topServices[0]["service"])
	assert.Equal(t, "AWS Lambda", topServices[2]["service"])
}

func TestCheckBudgetFocusedProject(t *testing.T) {
	var captured *costexplorer.GetCostAndUsageInput
	sc := budgetTestContext(t, &captured)

	data, err := handleCheckBudget(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"project_id":  "111111111111",
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	assert.Equal(t, []string{"111111111111"}, captured.Filter.And[1].Dimensions.Values,
		"focused analysis scopes the query to one account")

	focused := payload["focused_project"].(map[string]any)
	assert.Equal(t, "Research", focused["project_name"])
	details := focused["cost_details"].(map[string]any)
	assert.InDelta(t, 120.0, details["total_cost"].(float64), 0.001)
	daily := details["daily_costs"].(map[string]float64)
	assert.InDelta(t, 80.0, daily["2026-08-01"], 0.001)
	assert.InDelta(t, 40.0, daily["2026-08-02"], 0.001)
}

func TestCheckBudgetWithoutBudgetCheck(t *testing.T) {
	sc := budgetTestContext(t, nil)

	data, err := handleCheckBudget(context.Background(), request(map[string]any{
		"institution":  "sandbox",
		"budget_check": false,
	}), sc)
	require.NoError(t, err)
	payload := data.(map[string]any)

	summary := payload["summary"].(map[string]any)
	assert.InDelta(t, 0.0, summary["total_budget"].(float64), 0.001)
	assert.Equal(t, 0, summary["overbudget_count"])
	_, hasOverbudget := payload["overbudget_projects"]
	assert.False(t, hasOverbudget)
}

func TestCheckBudgetCustomExclusions(t *testing.T) {
	var captured *costexplorer.GetCostAndUsageInput
	sc := budgetTestContext(t, &captured)

	_, err := handleCheckBudget(context.Background(), request(map[string]any{
		"institution":      "sandbox",
		"exclude_services": []any{"Tax", "AWS Support (Business)"},
	}), sc)
	require.NoError(t, err)

	assert.Equal(t, []string{"Tax", "AWS Support (Business)"},
		captured.Filter.And[0].Not.Dimensions.Values)
}

func TestCheckBudgetRejectsBadGranularity(t *testing.T) {
	sc := budgetTestContext(t, nil)

	_, err := handleCheckBudget(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"granularity": "HOURLY",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindInvalidArgument, be.Kind)
}

func TestCheckBudgetRejectsFutureEndDate(t *testing.T) {
	sc := budgetTestContext(t, nil)

	_, err := handleCheckBudget(context.Background(), request(map[string]any{
		"institution": "sandbox",
		"start_date":  "2030-01-01",
		"end_date":    "2030-01-31",
	}), sc)
	require.Error(t, err)

	var be *envelope.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, envelope.KindInvalidArgument, be.Kind)
	assert.Contains(t, be.Message, "future")
}

package budget

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// RegisterBudgetTools registers the cost analysis tool with the MCP server.
func RegisterBudgetTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	budgetTool := mcp.NewTool("check_budget",
		mcp.WithDescription("Analyze Cost Explorer spend against the budgets tagged on an institution's accounts"),
		tools.InstitutionOption(),
		mcp.WithString("project_id",
			mcp.Description("Restrict the analysis to one account ID"),
		),
		mcp.WithString("start_date",
			mcp.Description("Analysis start, YYYY-MM-DD. Requires end_date."),
		),
		mcp.WithString("end_date",
			mcp.Description("Analysis end, YYYY-MM-DD. Requires start_date."),
		),
		mcp.WithString("period",
			mcp.Description("Shortcut instead of explicit dates: past_month or current_month"),
		),
		mcp.WithString("granularity",
			mcp.Description("DAILY or MONTHLY, default DAILY"),
		),
		mcp.WithArray("exclude_services",
			mcp.Description("Service names excluded from the analysis, default [\"Tax\"]"),
		),
		mcp.WithBoolean("budget_check",
			mcp.Description("Compare costs against Budget tags, default true"),
		),
	)
	s.AddTool(budgetTool, tools.Wrap(tools.ToolSpec{
		Name:             "check_budget",
		NeedsInstitution: true,
		Handler:          handleCheckBudget,
	}, sc))

	return nil
}

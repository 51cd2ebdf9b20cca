package orgs

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// RegisterOrgTools registers the organization inventory tools and the
// institution resource template with the MCP server.
func RegisterOrgTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	institutionsTool := mcp.NewTool("get_institutions",
		mcp.WithDescription("List AWS accounts of an institution's organization, or the configured institutions when none is given"),
		mcp.WithString("institution",
			mcp.Description("Institution name as configured in the secrets file. Omit to list configured institutions."),
		),
		mcp.WithString("institution_type",
			mcp.Description("Filter accounts by their Type or InstitutionType tag, case insensitive"),
		),
		mcp.WithBoolean("include_details",
			mcp.Description("Include email, join metadata, budget and raw tags per account"),
		),
	)
	s.AddTool(institutionsTool, tools.Wrap(tools.ToolSpec{
		Name:    "get_institutions",
		Handler: handleGetInstitutions,
	}, sc))

	projectsTool := mcp.NewTool("get_projects",
		mcp.WithDescription("Inventory an institution's organization: accounts and organizational units with OU paths, tags and budgets"),
		tools.InstitutionOption(),
		mcp.WithString("institution_id",
			mcp.Required(),
			mcp.Description("AWS account ID the inventory is anchored on"),
		),
		mcp.WithBoolean("include_aws_details",
			mcp.Description("Include raw ARNs, tags and OU membership per project"),
		),
	)
	s.AddTool(projectsTool, tools.Wrap(tools.ToolSpec{
		Name:             "get_projects",
		NeedsInstitution: true,
		Handler:          handleGetProjects,
	}, sc))

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"institution://institutions/{institution_id}",
			"AWS account details",
			mcp.WithTemplateDescription("Account metadata and tags for one AWS account, resolved across all configured institutions"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		institutionResourceHandler(sc),
	)

	return nil
}

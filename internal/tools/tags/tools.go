package tags

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// RegisterTagTools registers the resource tag tool with the MCP server.
func RegisterTagTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	tagsTool := mcp.NewTool("get_tags",
		mcp.WithDescription("Fetch an AWS resource's tags and extract budget metadata from them"),
		tools.InstitutionOption(),
		mcp.WithString("resource_arn",
			mcp.Required(),
			mcp.Description("ARN of the resource to read tags from"),
		),
		mcp.WithString("resource_type",
			mcp.Description("Resource type hint reported back in the metadata, defaults to the ARN's service"),
		),
	)
	s.AddTool(tagsTool, tools.Wrap(tools.ToolSpec{
		Name:             "get_tags",
		NeedsInstitution: true,
		Handler:          handleGetTags,
	}, sc))

	return nil
}

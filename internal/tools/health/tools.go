package health

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// RegisterHealthTools registers the health check tool with the MCP server.
func RegisterHealthTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	healthTool := mcp.NewTool("health_check",
		mcp.WithDescription("Check broker health and AWS reachability for every configured institution"),
	)

	s.AddTool(healthTool, tools.Wrap(tools.ToolSpec{
		Name:    "health_check",
		Handler: handleHealthCheck,
	}, sc))

	return nil
}

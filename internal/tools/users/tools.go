package users

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/grnet/mcp-aws-orgs/internal/capability"
	"github.com/grnet/mcp-aws-orgs/internal/server"
	"github.com/grnet/mcp-aws-orgs/internal/tools"
)

// RegisterUserTools registers the Identity Center directory tool and the
// gated identity operations with the MCP server.
func RegisterUserTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	usersTool := mcp.NewTool("get_users",
		mcp.WithDescription("List an institution's Identity Center users and groups as a hierarchy with account assignments"),
		tools.InstitutionOption(),
		mcp.WithString("role_filter",
			mcp.Description("Keep only principals whose account assignments mention this string"),
		),
		mcp.WithBoolean("include_groups",
			mcp.Description("Include groups and group memberships, default true"),
		),
		mcp.WithBoolean("include_assignments",
			mcp.Description("Include permission set account assignments, default true"),
		),
	)
	s.AddTool(usersTool, tools.Wrap(tools.ToolSpec{
		Name:             "get_users",
		NeedsInstitution: true,
		Handler:          handleGetUsers,
	}, sc))

	verifyTool := mcp.NewTool("verify_email",
		mcp.WithDescription("Trigger email verification for one Identity Center user"),
		tools.InstitutionOption(),
		mcp.WithString("user_id",
			mcp.Description("Identity Store user ID. Takes precedence over user_identifier."),
		),
		mcp.WithString("user_identifier",
			mcp.Description("Free-form user search: email, display name or username substring"),
		),
	)
	s.AddTool(verifyTool, tools.Wrap(tools.ToolSpec{
		Name:             "verify_email",
		NeedsInstitution: true,
		Capability:       capability.IdentityOps,
		Handler:          handleVerifyEmail,
	}, sc))

	resetTool := mcp.NewTool("reset_password",
		mcp.WithDescription("Reset an Identity Center user's password by email or one-time password"),
		tools.InstitutionOption(),
		mcp.WithString("user_id",
			mcp.Description("Identity Store user ID. Takes precedence over user_identifier."),
		),
		mcp.WithString("user_identifier",
			mcp.Description("Free-form user search: email, display name or username substring"),
		),
		mcp.WithString("mode",
			mcp.Description("EMAIL sends a reset mail, OTP returns a one-time password. Default EMAIL."),
		),
	)
	s.AddTool(resetTool, tools.Wrap(tools.ToolSpec{
		Name:             "reset_password",
		NeedsInstitution: true,
		Capability:       capability.IdentityOps,
		Handler:          handleResetPassword,
	}, sc))

	return nil
}

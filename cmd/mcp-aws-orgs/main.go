// Command mcp-aws-orgs starts the MCP server exposing AWS account
// management tools for institutions.
package main

import "github.com/grnet/mcp-aws-orgs/cmd"

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.2.3" ./cmd/mcp-aws-orgs
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}

package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// runStdioServer runs the broker with STDIO transport. Stdout carries the
// MCP frames, so nothing else may write to it; startup and shutdown stay
// silent and logs go to stderr.
func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	// Serve in a goroutine so shutdown signals stay observable
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	if err := <-serverDone; err != nil {
		return fmt.Errorf("stdio server stopped with error: %w", err)
	}
	return nil
}

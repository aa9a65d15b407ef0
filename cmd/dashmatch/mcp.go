// ABOUTME: MCP server command implementation for dashmatch.
// ABOUTME: Starts the MCP server in stdio mode for AI agent integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/dashmatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, letting AI agents search,
list, and summarize the dashboards on your analytics host.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := mcppkg.NewServer(globalSession,
		mcppkg.WithGenerator(globalAI),
		mcppkg.WithEmbedURL(globalHost.EmbedURL),
		mcppkg.WithLogger(globalLogger),
	)
	if err != nil {
		return err
	}
	defer server.Close()

	return server.Serve(ctx)
}

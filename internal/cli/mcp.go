package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mvp-joe/infer-dos/internal/analyzer"
	"github.com/mvp-joe/infer-dos/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for Durable Object inference",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM-powered coding
assistants ask which classes of a file are Durable Objects.

The MCP server:
- Provides the infer_durable_objects and explain_durable_object tools
- Resolves relative file arguments against the current directory
- Keeps parsed files cached between calls, re-parsing only what changed
- Communicates via stdio (standard MCP transport)

Example:
  infer-dos mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	a, err := analyzer.New(opts.analyzerConfig())
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "infer-dos MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project: %s\n", projectPath)
	fmt.Fprintf(os.Stderr, "Marker:  %s\n\n", opts.config.Marker.Name)

	server, err := mcp.NewMCPServer(&mcp.MCPServerConfig{
		ProjectPath: projectPath,
		Name:        "infer-dos",
		Version:     Version,
	}, a)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Serve (blocks until shutdown)
	if err := server.Serve(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

package mcp

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	config *MCPServerConfig
	loader SessionLoader
	mcp    *server.MCPServer
}

// NewMCPServer creates a new MCP server answering inference queries with loader.
func NewMCPServer(config *MCPServerConfig, loader SessionLoader) (*MCPServer, error) {
	if config == nil {
		config = DefaultMCPServerConfig()
	}
	if loader == nil {
		return nil, fmt.Errorf("session loader is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	AddInferTool(mcpServer, loader, config.ProjectPath)
	AddExplainTool(mcpServer, loader, config.ProjectPath)

	return &MCPServer{
		config: config,
		loader: loader,
		mcp:    mcpServer,
	}, nil
}

// Serve answers MCP requests on stdin/stdout until ctx is cancelled or
// the client closes the stream.
func (s *MCPServer) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO is Serve over an arbitrary transport pair.
func (s *MCPServer) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.Default())

	log.Printf("Serving MCP for %s", s.config.ProjectPath)
	if err := stdio.Listen(ctx, in, out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

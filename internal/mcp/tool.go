package mcp

// Implementation Plan:
// 1. AddInferTool - composable tool registration function
// 2. createInferHandler - handler factory that captures the session loader
// 3. Parse InferRequest from MCP arguments
// 4. Load the session and run the conformance pass
// 5. Return InferResponse as JSON text (mcp-go convention)

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/infer-dos/internal/analyzer"
)

// SessionLoader loads the program and model for a source file.
type SessionLoader interface {
	Load(ctx context.Context, path string) (*analyzer.Session, error)
}

// AddInferTool registers the infer_durable_objects tool with an MCP server.
func AddInferTool(s *server.MCPServer, loader SessionLoader, projectPath string) {
	tool := mcp.NewTool(
		"infer_durable_objects",
		mcp.WithDescription("List the exported classes of a TypeScript file that are Durable Objects, i.e. that extend or implement DurableObject directly or through any chain of base classes, interfaces, aliases and imported packages. Returns class names in source order."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path to the TypeScript source file, absolute or relative to the project root (e.g., 'src/index.ts')")),
		mcp.WithString("marker",
			mcp.Description("Name of the marker type classes must conform to (default: DurableObject)")),
	)

	s.AddTool(tool, createInferHandler(loader, projectPath))
}

// createInferHandler creates the handler function for infer_durable_objects tool.
func createInferHandler(loader SessionLoader, projectPath string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		var args InferRequest
		if err := bindArguments(argsMap, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		file, err := resolveFileAndMarker(args.File, args.Marker, projectPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args.File = file

		session, err := loader.Load(ctx, args.File)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Marker != "" {
			session.Marker = args.Marker
		}

		classes := session.Classes()
		return marshalToolResponse(&InferResponse{
			File:    args.File,
			Marker:  session.Marker,
			Classes: classes,
			Total:   len(classes),
		})
	}
}

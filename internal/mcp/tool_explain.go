package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AddExplainTool registers the explain_durable_object tool with an MCP server.
func AddExplainTool(s *server.MCPServer, loader SessionLoader, projectPath string) {
	tool := mcp.NewTool(
		"explain_durable_object",
		mcp.WithDescription("Explain why an exported class of a TypeScript file is or is not a Durable Object. Returns the shortest chain of extends/implements relations from the class to DurableObject, optionally with every type reachable from the class."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path to the TypeScript source file, absolute or relative to the project root")),
		mcp.WithString("class",
			mcp.Required(),
			mcp.Description("Name of an exported class declared in the file")),
		mcp.WithString("marker",
			mcp.Description("Name of the marker type (default: DurableObject)")),
		mcp.WithBoolean("include_graph",
			mcp.Description("Also return every type and relation reachable from the class (default: false)")),
	)

	s.AddTool(tool, createExplainHandler(loader, projectPath))
}

func createExplainHandler(loader SessionLoader, projectPath string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		var args ExplainRequest
		if err := bindArguments(argsMap, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		file, err := resolveFileAndMarker(args.File, args.Marker, projectPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args.File = file
		if args.Class == "" {
			return mcp.NewToolResultError("class parameter is required"), nil
		}

		session, err := loader.Load(ctx, args.File)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Marker != "" {
			session.Marker = args.Marker
		}

		explanation, err := session.Explain(args.Class)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		response := &ExplainResponse{
			File:     args.File,
			Class:    explanation.Class,
			Marker:   session.Marker,
			Conforms: explanation.Conforms,
			Path:     explanation.Path,
		}
		if args.IncludeGraph {
			response.Edges = explanation.Hierarchy.Edges()
			response.Nodes = explanation.Hierarchy.Nodes()
		}
		return marshalToolResponse(response)
	}
}

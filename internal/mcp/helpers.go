package mcp

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mvp-joe/infer-dos/internal/config"
)

// parseToolArguments validates and extracts the arguments map from an MCP tool request.
// Returns the arguments map or an error result if validation fails.
func parseToolArguments(request mcp.CallToolRequest) (map[string]interface{}, *mcp.CallToolResult) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, mcp.NewToolResultError("invalid arguments format")
	}
	return argsMap, nil
}

// resolveFileAndMarker checks the shared file and marker arguments. The
// file is resolved against projectPath when relative.
func resolveFileAndMarker(file, marker, projectPath string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("file parameter is required")
	}
	if marker != "" {
		if err := config.ValidateMarker(marker); err != nil {
			return "", err
		}
	}

	if !filepath.IsAbs(file) {
		file = filepath.Join(projectPath, file)
	}
	return file, nil
}

// marshalToolResponse marshals a response object to JSON and returns it as an MCP tool result.
func marshalToolResponse(response interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

package mcp

// Implementation Plan:
// 1. MCPServerConfig - configuration for MCP server
// 2. Request/Response types for MCP tool interface

import "github.com/mvp-joe/infer-dos/internal/hierarchy"

// MCPServerConfig configures the MCP server.
type MCPServerConfig struct {
	// ProjectPath resolves relative file arguments.
	ProjectPath string

	// Name and Version are reported to MCP clients.
	Name    string
	Version string
}

// DefaultMCPServerConfig returns a config rooted at the current directory.
func DefaultMCPServerConfig() *MCPServerConfig {
	return &MCPServerConfig{
		ProjectPath: ".",
		Name:        "infer-dos",
		Version:     "dev",
	}
}

// InferRequest is the input of the infer_durable_objects tool.
type InferRequest struct {
	File   string `json:"file"`
	Marker string `json:"marker,omitempty"`
}

// InferResponse is the output of the infer_durable_objects tool.
type InferResponse struct {
	File    string   `json:"file"`
	Marker  string   `json:"marker"`
	Classes []string `json:"classes"`
	Total   int      `json:"total"`
}

// ExplainRequest is the input of the explain_durable_object tool.
type ExplainRequest struct {
	File         string `json:"file"`
	Class        string `json:"class"`
	Marker       string `json:"marker,omitempty"`
	IncludeGraph bool   `json:"include_graph,omitempty"`
}

// ExplainResponse is the output of the explain_durable_object tool.
type ExplainResponse struct {
	File     string            `json:"file"`
	Class    string            `json:"class"`
	Marker   string            `json:"marker"`
	Conforms bool              `json:"conforms"`
	Path     []*hierarchy.Node `json:"path,omitempty"`
	Edges    []hierarchy.Edge  `json:"edges,omitempty"`
	Nodes    []*hierarchy.Node `json:"nodes,omitempty"`
}

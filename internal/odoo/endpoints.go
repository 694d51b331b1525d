package odoo

import (
	"net/url"
	"strings"
)

// Endpoints holds the paths of the remote routes. The MCP paths are served by
// the session-mirror controller module installed on the Odoo database.
type Endpoints struct {
	Authenticate string `yaml:"authenticate"` // e.g., "/web/session/authenticate"
	Capabilities string `yaml:"capabilities"` // e.g., "/mcp/capabilities"
	Search       string `yaml:"search"`       // e.g., "/mcp/search"
	Execute      string `yaml:"execute"`      // e.g., "/mcp/execute"
	// Schema contains a {model} placeholder.
	Schema string `yaml:"schema"` // e.g., "/mcp/model/{model}/schema"
}

// DefaultEndpoints returns the routes of a stock installation.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Authenticate: "/web/session/authenticate",
		Capabilities: "/mcp/capabilities",
		Search:       "/mcp/search",
		Execute:      "/mcp/execute",
		Schema:       "/mcp/model/{model}/schema",
	}
}

// WithDefaults fills empty fields from DefaultEndpoints.
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Authenticate == "" {
		e.Authenticate = d.Authenticate
	}
	if e.Capabilities == "" {
		e.Capabilities = d.Capabilities
	}
	if e.Search == "" {
		e.Search = d.Search
	}
	if e.Execute == "" {
		e.Execute = d.Execute
	}
	if e.Schema == "" {
		e.Schema = d.Schema
	}
	return e
}

// SchemaPath returns the schema route for model.
func (e Endpoints) SchemaPath(model string) string {
	return strings.ReplaceAll(e.Schema, "{model}", url.PathEscape(model))
}

// Package main is the entry point of odoo-mcp, an MCP server that exposes
// Odoo records to AI agents through a fixed set of tools.
package main

import (
	"odoomcp/cli/cmd"
)

func main() {
	cmd.Execute()
}

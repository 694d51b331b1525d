// Package tools is the fixed catalogue of Odoo operations exposed to an agent.
//
// Every tool validates its arguments locally before anything is sent to the
// server; a malformed call fails with a validation error and never reaches the
// transport. Tools that can change data are marked Mutates and their
// description carries ConfirmationNotice, which asks the calling agent to get
// explicit approval from its user first. The notice is a convention for the
// agent, not a lock: the server executes whatever it is asked.
package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool names.
const (
	Reconnect    = "odoo_reconnect"
	Capabilities = "odoo_capabilities"
	Search       = "odoo_search"
	Read         = "odoo_read"
	Count        = "odoo_count"
	Create       = "odoo_create"
	Update       = "odoo_update"
	Delete       = "odoo_delete"
	Schema       = "odoo_schema"
	Execute      = "odoo_execute"
)

// ConfirmationNotice is appended to the description of every mutating tool.
const ConfirmationNotice = "IMPORTANT: this operation modifies data in Odoo. Before calling it, " +
	"describe the exact change to the user and wait for their explicit confirmation."

// Tool is the static definition of one operation.
type Tool struct {
	Name  string
	Title string
	// Summary is the description without the confirmation notice.
	Summary string
	// Mutates marks tools that require prior human approval. odoo_execute is
	// always mutating since the effect of an arbitrary method is unknown.
	Mutates bool
	// Destructive marks tools whose effect may be irreversible.
	Destructive bool
	Required    []string
	InputSchema *jsonschema.Schema

	handler handler
}

// Description is the text shown to the agent.
func (t Tool) Description() string {
	if t.Mutates {
		return t.Summary + "\n\n" + ConfirmationNotice
	}
	return t.Summary
}

// ViewTypes are the views odoo_schema can introspect.
var ViewTypes = []string{"form", "tree", "search"}

func catalogue() []Tool {
	return []Tool{
		{
			Name:        Reconnect,
			Title:       "Reconnect to Odoo",
			Summary:     "Log in to Odoo again with the configured credentials. Use this if Odoo was started after the MCP server, or if the connection was lost.",
			InputSchema: object(nil),
			handler:     (*Dispatcher).reconnect,
		},
		{
			Name:        Capabilities,
			Title:       "List accessible menus and models",
			Summary:     "Get the menus and models the current user can access. Use this first to understand what you can work with.",
			InputSchema: object(nil),
			handler:     (*Dispatcher).capabilities,
		},
		{
			Name:     Search,
			Title:    "Search records",
			Summary:  "Search for records in any Odoo model. Supports filtering with a domain, field selection, pagination and sorting. limit defaults to 20; 0 returns every match.",
			Required: []string{"model"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model":  modelProp(),
				"domain": domainProp(),
				"fields": fieldsProp(),
				"limit":  {Type: "integer", Description: "Maximum number of records (default 20, capped by the server setting; 0 means no limit)", Minimum: ptr(0.0), Default: json.RawMessage("20")},
				"offset": {Type: "integer", Description: "Number of records to skip", Minimum: ptr(0.0), Default: json.RawMessage("0")},
				"order":  {Type: "string", Description: "Sort order, e.g. 'name asc' or 'create_date desc'"},
			}, "model"),
			handler: (*Dispatcher).search,
		},
		{
			Name:     Read,
			Title:    "Read one record",
			Summary:  "Read a single record by id. Fails with not_found if the record does not exist or is not visible to the user.",
			Required: []string{"model", "id"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model":  modelProp(),
				"id":     idProp("Record id"),
				"fields": fieldsProp(),
			}, "model", "id"),
			handler: (*Dispatcher).read,
		},
		{
			Name:     Count,
			Title:    "Count records",
			Summary:  "Count the records matching a domain without fetching them.",
			Required: []string{"model"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model":  modelProp(),
				"domain": domainProp(),
			}, "model"),
			handler: (*Dispatcher).count,
		},
		{
			Name:     Create,
			Title:    "Create a record",
			Summary:  "Create a new record in any Odoo model. Field validation and access rights are enforced by Odoo.",
			Mutates:  true,
			Required: []string{"model", "values"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model":  modelProp(),
				"values": valuesProp("Field values of the new record"),
			}, "model", "values"),
			handler: (*Dispatcher).create,
		},
		{
			Name:     Update,
			Title:    "Update a record",
			Summary:  "Update fields of an existing record. Field validation and access rights are enforced by Odoo.",
			Mutates:  true,
			Required: []string{"model", "id", "values"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model":  modelProp(),
				"id":     idProp("Id of the record to update"),
				"values": valuesProp("Field values to write"),
			}, "model", "id", "values"),
			handler: (*Dispatcher).update,
		},
		{
			Name:        Delete,
			Title:       "Delete a record",
			Summary:     "Delete a record. Fails with not_found if the record is already gone.",
			Mutates:     true,
			Destructive: true,
			Required:    []string{"model", "id"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model": modelProp(),
				"id":    idProp("Id of the record to delete"),
			}, "model", "id"),
			handler: (*Dispatcher).delete,
		},
		{
			Name:     Schema,
			Title:    "Describe a model",
			Summary:  "Get the field definitions of a model as shown in one of its views. Use it to learn the data structure before creating or updating records.",
			Required: []string{"model"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model": modelProp(),
				"view_type": {
					Type:        "string",
					Description: "View to introspect",
					Enum:        []any{"form", "tree", "search"},
					Default:     json.RawMessage(`"form"`),
				},
			}, "model"),
			handler: (*Dispatcher).schema,
		},
		{
			Name:        Execute,
			Title:       "Call a model method",
			Summary:     "Call a method or button action on an Odoo model, e.g. 'action_confirm' on sale.order. The return value is passed through as is.",
			Mutates:     true,
			Destructive: true,
			Required:    []string{"model", "method"},
			InputSchema: object(map[string]*jsonschema.Schema{
				"model":  modelProp(),
				"method": {Type: "string", Description: "Method name, e.g. 'action_confirm'", MinLength: ptr(1)},
				"ids": {
					Type:        "array",
					Description: "Ids of the records to call the method on; omit for model-level methods",
					Items:       &jsonschema.Schema{Type: "integer", Minimum: ptr(1.0)},
				},
				"args":   {Type: "array", Description: "Positional arguments"},
				"kwargs": {Type: "object", Description: "Keyword arguments"},
			}, "model", "method"),
			handler: (*Dispatcher).execute,
		},
	}
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func modelProp() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Technical model name, e.g. 'res.partner' or 'sale.order'",
		MinLength:   ptr(1),
	}
}

func idProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc, Minimum: ptr(1.0)}
}

func fieldsProp() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "Field names to return; omit for all readable fields",
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

func domainProp() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "array",
		Description: "Odoo domain: a list of [field, operator, value] conditions, optionally " +
			"combined with the prefix operators '&', '|' and '!', e.g. [['state', '=', 'draft']]",
	}
}

func valuesProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: desc, MinProperties: ptr(1)}
}

func ptr[T any](v T) *T { return &v }

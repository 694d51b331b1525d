package tools

import (
	"context"
	"encoding/json"
	"slices"
	"sort"

	"odoomcp/cli/internal/errors"
)

// CapabilitySet is what the current user can reach.
type CapabilitySet struct {
	User   CapabilityUser   `json:"user"`
	Menus  []map[string]any `json:"menus"`
	Models []ModelInfo      `json:"models"`
}

type CapabilityUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Login string `json:"login"`
}

type ModelInfo struct {
	Model       string `json:"model"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ModelSchema lists the fields of a model as seen through one view.
type ModelSchema struct {
	Model    string                    `json:"model"`
	ViewType string                    `json:"view_type"`
	Fields   map[string]map[string]any `json:"fields"`
}

func (d *Dispatcher) capabilities(ctx context.Context, args map[string]any) (any, error) {
	if err := decodeArgs(Capabilities, args, &struct{}{}); err != nil {
		return nil, err
	}
	endpoint := d.caller.Endpoints().Capabilities
	raw, err := d.caller.Call(ctx, endpoint, map[string]any{})
	if err != nil {
		return nil, err
	}
	return ShapeCapabilities(endpoint, raw)
}

// ShapeCapabilities normalizes a capabilities reply: empty lists instead of
// null, models sorted by technical name.
func ShapeCapabilities(endpoint string, raw json.RawMessage) (*CapabilitySet, error) {
	var c CapabilitySet
	if err := decodeResult(endpoint, raw, &c); err != nil {
		return nil, err
	}
	if c.Menus == nil {
		c.Menus = []map[string]any{}
	}
	if c.Models == nil {
		c.Models = []ModelInfo{}
	}
	sort.SliceStable(c.Models, func(i, j int) bool { return c.Models[i].Model < c.Models[j].Model })
	return &c, nil
}

func (d *Dispatcher) schema(ctx context.Context, args map[string]any) (any, error) {
	var a schemaArgs
	if err := present(args, "model"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Schema, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	if a.ViewType == "" {
		a.ViewType = ViewTypes[0]
	}
	if !slices.Contains(ViewTypes, a.ViewType) {
		return nil, errors.Newf(errors.Validation, "view_type must be one of %v, got %q", ViewTypes, a.ViewType)
	}

	endpoint := d.caller.Endpoints().SchemaPath(a.Model)
	raw, err := d.caller.Call(ctx, endpoint, map[string]any{"view_type": a.ViewType})
	if err != nil {
		return nil, err
	}
	return ShapeSchema(endpoint, a.Model, a.ViewType, raw)
}

// ShapeSchema normalizes a schema reply. A model without fields yields an
// empty map, never null.
func ShapeSchema(endpoint, model, viewType string, raw json.RawMessage) (*ModelSchema, error) {
	var s ModelSchema
	if err := decodeResult(endpoint, raw, &s); err != nil {
		return nil, err
	}
	if s.Model == "" {
		s.Model = model
	}
	if s.ViewType == "" {
		s.ViewType = viewType
	}
	if s.Fields == nil {
		s.Fields = map[string]map[string]any{}
	}
	return &s, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/logging"
	"odoomcp/cli/internal/normalize"
	"odoomcp/cli/internal/odoo"
)

// Search paging defaults.
const (
	DefaultSearchLimit = 20
	DefaultMaxLimit    = 100
)

// Caller is the part of the transport client the tools need.
type Caller interface {
	Call(ctx context.Context, endpoint string, params map[string]any) (json.RawMessage, error)
	Reconnect(ctx context.Context) (odoo.Session, error)
	Endpoints() odoo.Endpoints
}

// Options tunes a Dispatcher.
type Options struct {
	// MaxSearchLimit caps positive search limits. Zero means DefaultMaxLimit.
	MaxSearchLimit int
	Logger         *pterm.Logger
}

// Dispatcher validates tool calls and runs them against a Caller.
type Dispatcher struct {
	caller   Caller
	maxLimit int
	log      *pterm.Logger
	tools    []Tool
	byName   map[string]int
}

type handler func(d *Dispatcher, ctx context.Context, args map[string]any) (any, error)

// New builds a dispatcher over the full catalogue.
func New(caller Caller, opts Options) *Dispatcher {
	d := &Dispatcher{
		caller:   caller,
		maxLimit: opts.MaxSearchLimit,
		log:      opts.Logger,
		tools:    catalogue(),
		byName:   map[string]int{},
	}
	if d.maxLimit <= 0 {
		d.maxLimit = DefaultMaxLimit
	}
	if d.log == nil {
		d.log = logging.Nop()
	}
	for i, t := range d.tools {
		d.byName[t.Name] = i
	}
	return d
}

// Tools returns the catalogue in a stable order.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, len(d.tools))
	copy(out, d.tools)
	return out
}

// Lookup returns the tool called name.
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Tool{}, false
	}
	return d.tools[i], true
}

// Dispatch runs one tool call. It never panics on bad input and always
// returns an envelope: the result on success, a typed error otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) normalize.Envelope {
	start := time.Now()
	t, ok := d.Lookup(name)
	if !ok {
		return normalize.Failure(errors.Newf(errors.Validation, "unknown tool %q", name))
	}
	if args == nil {
		args = map[string]any{}
	}

	data, err := t.handler(d, ctx, args)
	if err != nil {
		d.log.Warn("tool call failed", d.log.Args(
			"tool", name,
			"kind", string(errors.KindOf(err)),
			"error", logging.Mask(err.Error()),
			"duration", time.Since(start).String(),
		))
		return normalize.Failure(err)
	}
	d.log.Info("tool call", d.log.Args("tool", name, "mutates", t.Mutates, "duration", time.Since(start).String()))
	return normalize.Success(data)
}

func (d *Dispatcher) reconnect(ctx context.Context, args map[string]any) (any, error) {
	if err := decodeArgs(Reconnect, args, &struct{}{}); err != nil {
		return nil, err
	}
	s, err := d.caller.Reconnect(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"connected": true,
		"uid":       s.UserID,
		"user":      s.UserName,
		"login":     s.Login,
		"database":  s.Database,
		"auth_mode": string(s.Mode),
	}, nil
}

func (d *Dispatcher) search(ctx context.Context, args map[string]any) (any, error) {
	var a searchArgs
	if err := present(args, "model"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Search, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	domain, err := ValidateDomain(a.Domain)
	if err != nil {
		return nil, err
	}
	if err := checkFields(a.Fields); err != nil {
		return nil, err
	}
	if a.Offset < 0 {
		return nil, errors.Newf(errors.Validation, "offset must not be negative, got %d", a.Offset)
	}
	limit, err := d.effectiveLimit(a.Limit)
	if err != nil {
		return nil, err
	}

	res, err := d.searchRead(ctx, a.Model, domain, a.Fields, limit, a.Offset, a.Order)
	if err != nil {
		return nil, err
	}
	return SearchResult{
		Model:   a.Model,
		Count:   len(res.Records),
		Limit:   limit,
		Offset:  a.Offset,
		Records: res.Records,
	}, nil
}

// effectiveLimit applies the paging policy: omitted means the default, zero
// means every match, positive values are capped.
func (d *Dispatcher) effectiveLimit(requested *int) (int, error) {
	switch {
	case requested == nil:
		return min(DefaultSearchLimit, d.maxLimit), nil
	case *requested < 0:
		return 0, errors.Newf(errors.Validation, "limit must not be negative, got %d", *requested)
	case *requested > d.maxLimit:
		return d.maxLimit, nil
	default:
		return *requested, nil
	}
}

// SearchResult is the payload of odoo_search. Limit 0 means unlimited.
type SearchResult struct {
	Model   string           `json:"model"`
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	Records []map[string]any `json:"records"`
}

type searchReply struct {
	Records []map[string]any `json:"records"`
}

func (d *Dispatcher) searchRead(ctx context.Context, model string, domain []any, fields []string, limit, offset int, order string) (*searchReply, error) {
	endpoint := d.caller.Endpoints().Search
	params := map[string]any{
		"model":  model,
		"domain": domain,
		"offset": offset,
		"limit":  nil,
	}
	if limit > 0 {
		params["limit"] = limit
	}
	if len(fields) > 0 {
		params["fields"] = fields
	}
	if order != "" {
		params["order"] = order
	}

	raw, err := d.caller.Call(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	var out searchReply
	if err := decodeResult(endpoint, raw, &out); err != nil {
		return nil, err
	}
	if out.Records == nil {
		out.Records = []map[string]any{}
	}
	return &out, nil
}

func (d *Dispatcher) read(ctx context.Context, args map[string]any) (any, error) {
	var a readArgs
	if err := present(args, "model", "id"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Read, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	if err := checkID("id", a.ID); err != nil {
		return nil, err
	}
	if err := checkFields(a.Fields); err != nil {
		return nil, err
	}

	return d.lookup(ctx, a.Model, a.ID, a.Fields)
}

// lookup returns the record model(id) or a NotFound error when the current
// user cannot see it.
func (d *Dispatcher) lookup(ctx context.Context, model string, id int64, fields []string) (map[string]any, error) {
	res, err := d.searchRead(ctx, model, []any{[]any{"id", "=", id}}, fields, 1, 0, "")
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, errors.Newf(errors.NotFound,
			"record %s(%d) does not exist or is not visible to the current user", model, id).
			WithEndpoint(d.caller.Endpoints().Search)
	}
	return res.Records[0], nil
}

func (d *Dispatcher) count(ctx context.Context, args map[string]any) (any, error) {
	var a countArgs
	if err := present(args, "model"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Count, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	domain, err := ValidateDomain(a.Domain)
	if err != nil {
		return nil, err
	}

	endpoint := d.caller.Endpoints().Execute
	raw, err := d.caller.Call(ctx, endpoint, map[string]any{
		"model":  a.Model,
		"method": "search_count",
		"args":   []any{domain},
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Result json.RawMessage `json:"result"`
	}
	if err := decodeResult(endpoint, raw, &out); err != nil {
		return nil, err
	}
	n, err := parseCount(out.Result)
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	return map[string]any{"model": a.Model, "count": n}, nil
}

// parseCount accepts a number, a numeric string or null. The controller
// stringifies method results and turns a zero count into null.
func parseCount(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return 0, nil
	}
	var n json.Number
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n = json.Number(s)
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("count result %s is not a number", raw)
	}
	v, err := n.Int64()
	if err != nil || v < 0 {
		return 0, fmt.Errorf("count result %s is not a non-negative integer", raw)
	}
	return v, nil
}

func (d *Dispatcher) create(ctx context.Context, args map[string]any) (any, error) {
	var a createArgs
	if err := present(args, "model", "values"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Create, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	if err := checkValues(a.Values); err != nil {
		return nil, err
	}

	endpoint := d.caller.Endpoints().Execute
	raw, err := d.caller.Call(ctx, endpoint, map[string]any{
		"model":  a.Model,
		"method": "create",
		"values": a.Values,
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}
	if err := decodeResult(endpoint, raw, &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, normalize.Transport(endpoint, fmt.Errorf("create returned no record id: %s", raw), false)
	}
	return map[string]any{"success": true, "model": a.Model, "id": out.ID}, nil
}

func (d *Dispatcher) update(ctx context.Context, args map[string]any) (any, error) {
	var a updateArgs
	if err := present(args, "model", "id", "values"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Update, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	if err := checkID("id", a.ID); err != nil {
		return nil, err
	}
	if err := checkValues(a.Values); err != nil {
		return nil, err
	}
	return d.mutateRecord(ctx, a.Model, "write", a.ID, a.Values)
}

func (d *Dispatcher) delete(ctx context.Context, args map[string]any) (any, error) {
	var a deleteArgs
	if err := present(args, "model", "id"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Delete, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	if err := checkID("id", a.ID); err != nil {
		return nil, err
	}
	// Odoo's unlink skips ids that no longer exist and still reports success.
	if _, err := d.lookup(ctx, a.Model, a.ID, []string{"id"}); err != nil {
		return nil, err
	}
	return d.mutateRecord(ctx, a.Model, "unlink", a.ID, nil)
}

func (d *Dispatcher) mutateRecord(ctx context.Context, model, method string, id int64, values map[string]any) (any, error) {
	endpoint := d.caller.Endpoints().Execute
	params := map[string]any{
		"model":  model,
		"method": method,
		"ids":    []int64{id},
	}
	if values != nil {
		params["values"] = values
	}
	raw, err := d.caller.Call(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Success bool    `json:"success"`
		IDs     []int64 `json:"ids"`
	}
	if err := decodeResult(endpoint, raw, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, normalize.Transport(endpoint, fmt.Errorf("%s did not report success: %s", method, raw), false)
	}
	if out.IDs == nil {
		out.IDs = []int64{id}
	}
	return map[string]any{"success": true, "model": model, "ids": out.IDs}, nil
}

func (d *Dispatcher) execute(ctx context.Context, args map[string]any) (any, error) {
	var a executeArgs
	if err := present(args, "model", "method"); err != nil {
		return nil, err
	}
	if err := decodeArgs(Execute, args, &a); err != nil {
		return nil, err
	}
	if err := checkModel(a.Model); err != nil {
		return nil, err
	}
	if !methodName.MatchString(a.Method) {
		return nil, errors.Newf(errors.Validation, "%q is not a valid method name", a.Method)
	}
	for i, id := range a.IDs {
		if err := checkID(fmt.Sprintf("ids[%d]", i), id); err != nil {
			return nil, err
		}
	}

	params := map[string]any{
		"model":  a.Model,
		"method": a.Method,
	}
	if len(a.IDs) > 0 {
		params["ids"] = a.IDs
	}
	if a.Args != nil {
		params["args"] = a.Args
	}
	if a.Kwargs != nil {
		params["kwargs"] = a.Kwargs
	}
	raw, err := d.caller.Call(ctx, d.caller.Endpoints().Execute, params)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeResult unmarshals a successful result; a shape mismatch means the
// server is not speaking the expected protocol.
func decodeResult(endpoint string, raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return normalize.Transport(endpoint, fmt.Errorf("unexpected result shape: %w", err), false)
	}
	return nil
}

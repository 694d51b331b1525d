// Package mcpserver exposes the Odoo tool catalogue over the Model Context
// Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pterm/pterm"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/logging"
	"odoomcp/cli/internal/normalize"
	"odoomcp/cli/internal/tools"
)

// Name is the implementation name announced during the handshake.
const Name = "odoo-mcp"

// Dispatcher runs tool calls.
type Dispatcher interface {
	Tools() []tools.Tool
	Dispatch(ctx context.Context, name string, args map[string]any) normalize.Envelope
}

// Server wraps an mcp.Server with every tool of the catalogue registered.
type Server struct {
	mcp *mcp.Server
	log *pterm.Logger
}

// New registers the catalogue of d.
func New(d Dispatcher, version string, log *pterm.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil),
		log: log,
	}
	for _, t := range d.Tools() {
		s.mcp.AddTool(toolDef(t), s.handler(d, t.Name))
	}
	return s
}

// MCP returns the underlying server, for custom transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves over stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving over stdio")
	start := time.Now()
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	s.log.Info("session ended", s.log.Args("uptime", time.Since(start).Round(time.Second).String()))
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func toolDef(t tools.Tool) *mcp.Tool {
	ann := &mcp.ToolAnnotations{
		Title:         t.Title,
		ReadOnlyHint:  !t.Mutates,
		OpenWorldHint: ptr(false),
	}
	if t.Mutates {
		ann.DestructiveHint = ptr(t.Destructive)
	}
	// Repeating a write or unlink of the same record ends in the same state.
	ann.IdempotentHint = !t.Mutates || t.Name == tools.Delete || t.Name == tools.Update

	return &mcp.Tool{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description(),
		InputSchema: t.InputSchema,
		Annotations: ann,
	}
}

func (s *Server) handler(d Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := arguments(req.Params.Arguments)
		var env normalize.Envelope
		if err != nil {
			env = normalize.Failure(err)
		} else {
			env = d.Dispatch(ctx, name, args)
		}
		return render(env), nil
	}
}

func arguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.Wrap(errors.Validation, "tool arguments must be a JSON object", err)
	}
	return args, nil
}

// render turns an envelope into tool output. Failures are tool errors so the
// agent sees them, not protocol errors.
func render(env normalize.Envelope) *mcp.CallToolResult {
	text, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		env = normalize.Failure(errors.Wrap(errors.Transport, "cannot encode result", err))
		text, _ = json.MarshalIndent(env, "", "  ")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		IsError: !env.OK,
	}
}

func ptr[T any](v T) *T { return &v }

package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/normalize"
	"odoomcp/cli/internal/odoo"
	"odoomcp/cli/internal/odoo/odootest"
	"odoomcp/cli/internal/tools"
)

func connect(t *testing.T) (*mcp.ClientSession, *odootest.Server) {
	t.Helper()
	srv := odootest.NewServer(t)
	c, err := odoo.New(odoo.Options{
		URL:         srv.URL,
		Database:    odootest.Database,
		Credentials: auth.Credentials{Username: odootest.Login, Password: odootest.Password},
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	s := New(tools.New(c, tools.Options{}), "test", nil)

	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	cs, err := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil).Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs, srv
}

func envelope(t *testing.T, res *mcp.CallToolResult) normalize.Envelope {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	var env normalize.Envelope
	if err := json.Unmarshal([]byte(text.Text), &env); err != nil {
		t.Fatalf("content is not an envelope: %v\n%s", err, text.Text)
	}
	return env
}

func TestListTools(t *testing.T) {
	cs, _ := connect(t)

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tools) != 10 {
		t.Fatalf("got %d tools, want 10", len(res.Tools))
	}
	for _, tool := range res.Tools {
		mutates := tool.Name == tools.Create || tool.Name == tools.Update || tool.Name == tools.Delete || tool.Name == tools.Execute
		if got := strings.Contains(tool.Description, tools.ConfirmationNotice); got != mutates {
			t.Errorf("%s: confirmation notice = %v, want %v", tool.Name, got, mutates)
		}
		if tool.Annotations == nil || tool.Annotations.ReadOnlyHint == mutates {
			t.Errorf("%s: read-only hint does not match", tool.Name)
		}
	}
}

func TestCallToolRoundTrip(t *testing.T) {
	cs, srv := connect(t)
	srv.Seed("res.partner", map[string]any{"name": "Gemini Furniture"})
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.Search,
		Arguments: map[string]any{"model": "res.partner", "fields": []string{"name"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	env := envelope(t, res)
	data, _ := json.Marshal(env.Data)
	if !env.OK || !strings.Contains(string(data), "Gemini Furniture") {
		t.Errorf("unexpected envelope: %s", data)
	}
}

func TestCallToolErrorsAreToolResults(t *testing.T) {
	cs, _ := connect(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		kind string
	}{
		{name: "validation", tool: tools.Search, args: map[string]any{"model": "res.partner", "domain": "nonsense"}, kind: "validation_error"},
		{name: "not found", tool: tools.Read, args: map[string]any{"model": "res.partner", "id": 999}, kind: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tt.tool, Arguments: tt.args})
			if err != nil {
				t.Fatalf("protocol error: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected IsError")
			}
			env := envelope(t, res)
			if env.OK || env.Error == nil || string(env.Error.Kind) != tt.kind {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestArguments(t *testing.T) {
	tests := []struct {
		raw     string
		wantLen int
		wantErr bool
	}{
		{raw: "", wantLen: 0},
		{raw: "null", wantLen: 0},
		{raw: `{"model":"res.partner"}`, wantLen: 1},
		{raw: `[1,2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			args, err := arguments(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if !tt.wantErr && len(args) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(args), tt.wantLen)
			}
		})
	}
}

package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    pterm.LogLevel
		wantErr bool
	}{
		{in: "", want: pterm.LogLevelInfo},
		{in: "DEBUG", want: pterm.LogLevelDebug},
		{in: "warning", want: pterm.LogLevelWarn},
		{in: "off", want: pterm.LogLevelDisabled},
		{in: "verbose", want: pterm.LogLevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, pterm.LogLevelInfo, true)
	l.Info("tool call", l.Args("tool", "odoo_search"))
	l.Debug("hidden below level")

	out := buf.String()
	if !strings.Contains(out, "tool call") || !strings.Contains(out, "odoo_search") {
		t.Errorf("unexpected log output: %q", out)
	}
	if strings.Contains(out, "hidden below level") {
		t.Errorf("debug line leaked at info level: %q", out)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.log")
	l, closer, err := Open(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Info("started")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "started") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestPresentErrorMasks(t *testing.T) {
	got := PresentError("login failed", errors.New(`body {"password":"hunter2"}`))
	want := `login failed: body {"password":"***"}`
	if got != want {
		t.Errorf("PresentError() = %q, want %q", got, want)
	}
}

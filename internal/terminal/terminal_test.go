package terminal

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func pipeWith(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteString(input); err != nil {
		t.Fatal(err)
	}
	w.Close()
	t.Cleanup(func() { r.Close() })
	return r
}

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := &Prompter{In: pipeWith(t, "\n  erp.example.com \nhunter2\n"), Out: &out}

	got, err := p.Ask("Database", "prod")
	if err != nil || got != "prod" {
		t.Fatalf("default answer: %q, %v", got, err)
	}
	got, err = p.Ask("Server", "")
	if err != nil || got != "erp.example.com" {
		t.Fatalf("typed answer: %q, %v", got, err)
	}
	got, err = p.Secret("Password")
	if err != nil || got != "hunter2" {
		t.Fatalf("secret: %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "Database [prod]: ") {
		t.Errorf("prompt not shown: %q", out.String())
	}
	if strings.Contains(out.String(), "hunter2") {
		t.Error("secret echoed by the prompter")
	}
}

func TestAskAtEOF(t *testing.T) {
	p := &Prompter{In: pipeWith(t, "last"), Out: &bytes.Buffer{}}
	got, err := p.Ask("Name", "")
	if err != nil || got != "last" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := p.Ask("Again", ""); err == nil {
		t.Error("expected EOF")
	}
}

func TestClearPreviousLines(t *testing.T) {
	var out bytes.Buffer
	ClearPreviousLines(&out, 10)
	if got := strings.Count(out.String(), "\x1b[2K"); got != 2 {
		t.Errorf("cleared %d lines, want 2", got)
	}
}

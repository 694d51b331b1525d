package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"odoomcp/cli/internal/xdg"
)

// LogFileName is the file created under the XDG state dir when file logging
// is requested without an explicit path.
const LogFileName = "server.log"

// Options selects where and how verbosely the server logs.
type Options struct {
	Level string // trace, debug, info, warn, error, off
	File  string // "" logs to stderr, "auto" uses the state dir
	JSON  bool
}

// ParseLevel maps a textual level onto a pterm level. Empty means info.
func ParseLevel(s string) (pterm.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return pterm.LogLevelInfo, nil
	case "trace":
		return pterm.LogLevelTrace, nil
	case "debug":
		return pterm.LogLevelDebug, nil
	case "warn", "warning":
		return pterm.LogLevelWarn, nil
	case "error":
		return pterm.LogLevelError, nil
	case "off", "none", "disabled":
		return pterm.LogLevelDisabled, nil
	default:
		return pterm.LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a logger writing to w.
func New(w io.Writer, level pterm.LogLevel, json bool) *pterm.Logger {
	l := pterm.DefaultLogger.WithLevel(level).WithWriter(w)
	if json {
		l = l.WithFormatter(pterm.LogFormatterJSON)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}

// Open resolves opts into a logger. The returned closer releases the log file
// and is never nil.
func Open(opts Options) (*pterm.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.File == "" {
		return New(os.Stderr, level, opts.JSON), nopCloser{}, nil
	}

	path := opts.File
	if path == "auto" {
		dir, err := xdg.StateDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve state dir: %w", err)
		}
		path = filepath.Join(dir, LogFileName)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	// Files are read by tools, not humans at a terminal.
	return New(f, level, true), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

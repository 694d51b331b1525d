// Package xdg provides helpers to resolve XDG Base Directory paths for odoo-mcp.
// The config directory holds the optional config.yaml; the state directory is
// where the server writes its log file when file logging is enabled, since the
// MCP stdio channel leaves neither stdout nor (for some hosts) stderr usable.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under each XDG base directory.
const AppName = "odoo-mcp"

// ConfigDir returns the XDG config directory for odoo-mcp.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/odoo-mcp when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for odoo-mcp.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/odoo-mcp when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envKey, homeRel string) (string, error) {
	base := os.Getenv(envKey)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

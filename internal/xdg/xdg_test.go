package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirsHonourEnvironment(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "cfg"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{name: "config", fn: ConfigDir, want: filepath.Join(base, "cfg", AppName)},
		{name: "state", fn: StateDir, want: filepath.Join(base, "state", AppName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("dir = %q, want %q", got, tt.want)
			}
			info, err := os.Stat(got)
			if err != nil {
				t.Fatalf("directory not created: %v", err)
			}
			if perm := info.Mode().Perm(); perm != 0o700 {
				t.Errorf("perm = %o, want 700", perm)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/errors"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

type storedLogin struct {
	st    auth.State
	creds auth.Credentials
}

func (s storedLogin) Current() (auth.State, auth.Credentials, error) { return s.st, s.creds, nil }

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load(Options{Getenv: env(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if c.Lang != "en_US" || c.Timeout != 60*time.Second || c.MaxSearchLimit != 100 || c.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Endpoints.Search != "/mcp/search" || c.File != "" {
		t.Errorf("unexpected endpoints or file: %+v", c)
	}
	if c.Source("url") != FromDefault {
		t.Errorf("url source = %s", c.Source("url"))
	}
}

func TestPrecedence(t *testing.T) {
	file := writeFile(t, `
url: https://file.example.com
database: filedb
username: file-user
lang: de_DE
timeout: 15s
max_search_limit: 50
endpoints:
  search: /custom/search
`)

	c, err := Load(Options{
		File: file,
		Getenv: env(map[string]string{
			EnvDatabase: "envdb",
			EnvPassword: "s3cret",
			EnvLang:     "fr_FR",
			EnvTimeout:  "30",
		}),
		Flags: Flags{Lang: "nl_NL"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		got    any
		want   any
		source Source
	}{
		{name: "url", got: c.URL, want: "https://file.example.com", source: FromFile},
		{name: "database", got: c.Database, want: "envdb", source: FromEnv},
		{name: "username", got: c.Username, want: "file-user", source: FromFile},
		{name: "lang", got: c.Lang, want: "nl_NL", source: FromFlag},
		{name: "timeout", got: c.Timeout, want: 30 * time.Second, source: FromEnv},
		{name: "max_search_limit", got: c.MaxSearchLimit, want: 50, source: FromFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
			if s := c.Source(tt.name); s != tt.source {
				t.Errorf("source = %s, want %s", s, tt.source)
			}
		})
	}

	if c.Endpoints.Search != "/custom/search" || c.Endpoints.Execute != "/mcp/execute" {
		t.Errorf("endpoints not merged with defaults: %+v", c.Endpoints)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSecretsAreNotReadFromFile(t *testing.T) {
	file := writeFile(t, "url: https://erp.example.com\ndatabase: db\nusername: u\n")
	c, err := Load(Options{File: file, Getenv: env(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if c.Password != "" {
		t.Error("password must not come from the config file")
	}
}

func TestLoadReportsBadInput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "missing explicit file", opts: Options{File: filepath.Join(t.TempDir(), "absent.yaml"), Getenv: env(nil)}},
		{name: "bad yaml", opts: Options{File: writeFile(t, "url: [unterminated"), Getenv: env(nil)}},
		{name: "bad timeout", opts: Options{Getenv: env(map[string]string{EnvTimeout: "soon"})}},
		{name: "bad limit", opts: Options{Getenv: env(map[string]string{EnvMaxSearchLimit: "lots"})}},
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)
			if !errors.Is(err, errors.Configuration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestValidateAggregates(t *testing.T) {
	c := Default()
	c.URL = "ftp://erp"
	c.Username = "admin"
	c.LogLevel = "loud"
	c.MaxSearchLimit = 0

	err := c.Validate()
	if !errors.Is(err, errors.Configuration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"http or https", "ODOO_DB", "ODOO_PASSWORD", "loud", "max_search_limit"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error does not mention %q:\n%s", want, msg)
		}
	}
}

func TestKeychainFallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	stored := storedLogin{
		st:    auth.State{URL: "https://erp.example.com", Database: "prod", Mode: auth.ModeAPIKey},
		creds: auth.Credentials{APIKey: "key-1234"},
	}

	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{name: "nothing configured", env: nil, wantKey: "key-1234"},
		{name: "same server", env: map[string]string{EnvURL: "https://erp.example.com/", EnvDatabase: "prod"}, wantKey: "key-1234"},
		{name: "other server", env: map[string]string{EnvURL: "https://other.example.com", EnvDatabase: "prod"}, wantKey: ""},
		{name: "env credentials win", env: map[string]string{EnvAPIKey: "env-key"}, wantKey: "env-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(Options{Getenv: env(tt.env), Secrets: stored})
			if err != nil {
				t.Fatal(err)
			}
			if c.APIKey != tt.wantKey {
				t.Errorf("api key = %q, want %q", c.APIKey, tt.wantKey)
			}
		})
	}
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvDatabase, "real")
	os.Unsetenv(EnvURL)
	t.Cleanup(func() { os.Unsetenv(EnvURL) })

	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, []byte("ODOO_URL=https://dotenv.example.com\nODOO_DB=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(Options{DotEnv: dotenv})
	if err != nil {
		t.Fatal(err)
	}
	if c.URL != "https://dotenv.example.com" || c.Database != "real" {
		t.Errorf("url %q database %q", c.URL, c.Database)
	}
}

func TestMasked(t *testing.T) {
	c := Default()
	c.Password = "hunter2"
	c.APIKey = "0123456789abcdef"
	m := c.Masked()
	if m.Password == "hunter2" || !strings.HasSuffix(m.APIKey, "cdef") || strings.Contains(m.APIKey, "0123") {
		t.Errorf("not masked: %+v", m)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.URL = "https://erp.example.com"
	c.Password = "never-written"
	if err := Save(p, c); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "never-written") {
		t.Error("secret written to config file")
	}

	back, err := Load(Options{File: p, Getenv: env(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if back.URL != c.URL || back.Timeout != c.Timeout {
		t.Errorf("round trip lost settings: %+v", back)
	}
}

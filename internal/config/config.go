// Package config resolves the settings of the proxy. Values come from, in
// decreasing priority: command-line flags, the environment (optionally
// seeded from a .env file), the YAML config file in the XDG config dir, the
// OS keychain for credentials, and built-in defaults.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/logging"
	"odoomcp/cli/internal/odoo"
	"odoomcp/cli/internal/xdg"
)

// Environment variables.
const (
	EnvURL            = "ODOO_URL"
	EnvDatabase       = "ODOO_DB"
	EnvUsername       = "ODOO_USERNAME"
	EnvPassword       = "ODOO_PASSWORD"
	EnvAPIKey         = "ODOO_API_KEY"
	EnvLang           = "PREFERRED_LANG"
	EnvLogLevel       = "ODOO_MCP_LOG_LEVEL"
	EnvLogFile        = "ODOO_MCP_LOG_FILE"
	EnvTimeout        = "ODOO_MCP_TIMEOUT"
	EnvMaxSearchLimit = "ODOO_MCP_MAX_SEARCH_LIMIT"
)

// Defaults.
const (
	DefaultLang           = odoo.DefaultLang
	DefaultLogLevel       = "info"
	DefaultTimeout        = odoo.DefaultTimeout
	DefaultMaxSearchLimit = 100
)

// Source tells where a setting came from.
type Source string

const (
	FromDefault  Source = "default"
	FromFile     Source = "file"
	FromKeychain Source = "keychain"
	FromEnv      Source = "env"
	FromFlag     Source = "flag"
)

// Config holds the effective settings. Secrets are never read from or
// written to the YAML file.
type Config struct {
	URL            string         `yaml:"url"`
	Database       string         `yaml:"database"`
	Username       string         `yaml:"username"`
	Password       string         `yaml:"-"`
	APIKey         string         `yaml:"-"`
	Lang           string         `yaml:"lang"`
	LogLevel       string         `yaml:"log_level"`
	LogFile        string         `yaml:"log_file"`
	Timeout        time.Duration  `yaml:"timeout"`
	MaxSearchLimit int            `yaml:"max_search_limit"`
	Endpoints      odoo.Endpoints `yaml:"endpoints"`

	// File is the config file that was read, empty if none.
	File string `yaml:"-"`
	// Sources maps setting names to their origin.
	Sources map[string]Source `yaml:"-"`
}

// Flags are the command-line overrides. Empty strings mean "not set".
type Flags struct {
	URL      string
	Database string
	Lang     string
	LogLevel string
	LogFile  string
}

// SecretSource yields credentials stored by an interactive login.
type SecretSource interface {
	Current() (auth.State, auth.Credentials, error)
}

// Options drives Load.
type Options struct {
	// File is an explicit config file; it must exist. Empty means the
	// default location, which may be absent.
	File string
	// DotEnv is loaded into the process environment without overriding it.
	DotEnv string
	Flags  Flags
	// Getenv defaults to os.Getenv.
	Getenv  func(string) string
	Secrets SecretSource
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Lang:           DefaultLang,
		LogLevel:       DefaultLogLevel,
		Timeout:        DefaultTimeout,
		MaxSearchLimit: DefaultMaxSearchLimit,
		Endpoints:      odoo.DefaultEndpoints(),
		Sources:        map[string]Source{},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load resolves the configuration. Problems are collected and returned
// together as one configuration error, alongside what could be resolved.
func Load(opts Options) (Config, error) {
	c := Default()
	var problems *multierror.Error

	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			problems = multierror.Append(problems, fmt.Errorf("%s: %w", opts.DotEnv, err))
		}
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if err := c.readFile(opts.File); err != nil {
		problems = multierror.Append(problems, err)
	}
	if err := c.applyEnv(getenv); err != nil {
		problems = multierror.Append(problems, err)
	}
	c.applyFlags(opts.Flags)
	c.applyKeychain(opts.Secrets)
	c.Endpoints = c.Endpoints.WithDefaults()

	if err := problems.ErrorOrNil(); err != nil {
		return c, errors.Wrap(errors.Configuration, "cannot load configuration", err)
	}
	return c, nil
}

func (c *Config) readFile(explicit string) error {
	p := explicit
	if p == "" {
		var err error
		if p, err = Path(); err != nil {
			return nil
		}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) && explicit == "" {
			return nil
		}
		return err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	c.File = p
	c.set("url", &c.URL, file.URL, FromFile)
	c.set("database", &c.Database, file.Database, FromFile)
	c.set("username", &c.Username, file.Username, FromFile)
	c.set("lang", &c.Lang, file.Lang, FromFile)
	c.set("log_level", &c.LogLevel, file.LogLevel, FromFile)
	c.set("log_file", &c.LogFile, file.LogFile, FromFile)
	if file.Timeout != 0 {
		c.Timeout = file.Timeout
		c.Sources["timeout"] = FromFile
	}
	if file.MaxSearchLimit != 0 {
		c.MaxSearchLimit = file.MaxSearchLimit
		c.Sources["max_search_limit"] = FromFile
	}
	if file.Endpoints != (odoo.Endpoints{}) {
		c.Endpoints = file.Endpoints
		c.Sources["endpoints"] = FromFile
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var problems *multierror.Error

	c.set("url", &c.URL, getenv(EnvURL), FromEnv)
	c.set("database", &c.Database, getenv(EnvDatabase), FromEnv)
	c.set("username", &c.Username, getenv(EnvUsername), FromEnv)
	c.set("password", &c.Password, getenv(EnvPassword), FromEnv)
	c.set("api_key", &c.APIKey, getenv(EnvAPIKey), FromEnv)
	c.set("lang", &c.Lang, getenv(EnvLang), FromEnv)
	c.set("log_level", &c.LogLevel, getenv(EnvLogLevel), FromEnv)
	c.set("log_file", &c.LogFile, getenv(EnvLogFile), FromEnv)

	if v := strings.TrimSpace(getenv(EnvTimeout)); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			problems = multierror.Append(problems, fmt.Errorf("%s: %w", EnvTimeout, err))
		} else {
			c.Timeout = d
			c.Sources["timeout"] = FromEnv
		}
	}
	if v := strings.TrimSpace(getenv(EnvMaxSearchLimit)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = multierror.Append(problems, fmt.Errorf("%s: %q is not an integer", EnvMaxSearchLimit, v))
		} else {
			c.MaxSearchLimit = n
			c.Sources["max_search_limit"] = FromEnv
		}
	}
	return problems.ErrorOrNil()
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a duration nor a number of seconds", v)
	}
	return d, nil
}

func (c *Config) applyFlags(f Flags) {
	c.set("url", &c.URL, f.URL, FromFlag)
	c.set("database", &c.Database, f.Database, FromFlag)
	c.set("lang", &c.Lang, f.Lang, FromFlag)
	c.set("log_level", &c.LogLevel, f.LogLevel, FromFlag)
	c.set("log_file", &c.LogFile, f.LogFile, FromFlag)
}

// applyKeychain fills credentials from the last interactive login when none
// were configured. The stored account must match the configured server.
func (c *Config) applyKeychain(src SecretSource) {
	if src == nil || c.Credentials().Mode() != auth.ModeNone {
		return
	}
	st, creds, err := src.Current()
	if err != nil || st.URL == "" {
		return
	}
	if c.URL != "" && strings.TrimRight(c.URL, "/") != strings.TrimRight(st.URL, "/") {
		return
	}
	if c.Database != "" && c.Database != st.Database {
		return
	}
	if c.URL == "" {
		c.set("url", &c.URL, st.URL, FromKeychain)
	}
	if c.Database == "" {
		c.set("database", &c.Database, st.Database, FromKeychain)
	}
	c.Username = creds.Username
	c.Password = creds.Password
	c.APIKey = creds.APIKey
	if creds.Mode() == auth.ModeAPIKey {
		c.Sources["api_key"] = FromKeychain
	} else {
		c.Sources["username"] = FromKeychain
		c.Sources["password"] = FromKeychain
	}
}

func (c *Config) set(name string, dst *string, v string, src Source) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	*dst = v
	c.Sources[name] = src
}

// Source reports where name came from.
func (c Config) Source(name string) Source {
	if s, ok := c.Sources[name]; ok {
		return s
	}
	return FromDefault
}

// Credentials returns the configured credential form.
func (c Config) Credentials() auth.Credentials {
	return auth.Credentials{Username: c.Username, Password: c.Password, APIKey: c.APIKey}
}

// ClientOptions maps the configuration onto the transport client.
func (c Config) ClientOptions() odoo.Options {
	return odoo.Options{
		URL:         c.URL,
		Database:    c.Database,
		Credentials: c.Credentials(),
		Lang:        c.Lang,
		Timeout:     c.Timeout,
		Endpoints:   c.Endpoints,
	}
}

// Validate reports every problem at once as a configuration error.
func (c Config) Validate() error {
	var problems *multierror.Error

	if c.URL == "" {
		problems = multierror.Append(problems, errors.New(errors.Configuration, "ODOO_URL is required"))
	} else if err := odoo.ValidateTarget(c.URL, "-"); err != nil {
		problems = multierror.Append(problems, err)
	}
	if c.Database == "" {
		problems = multierror.Append(problems, errors.New(errors.Configuration, "ODOO_DB is required"))
	}
	if err := c.Credentials().Validate(); err != nil {
		problems = multierror.Append(problems, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = multierror.Append(problems, errors.Wrap(errors.Configuration, "log_level", err))
	}
	if c.Timeout <= 0 {
		problems = multierror.Append(problems, errors.Newf(errors.Configuration, "timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxSearchLimit <= 0 {
		problems = multierror.Append(problems, errors.Newf(errors.Configuration, "max_search_limit must be positive, got %d", c.MaxSearchLimit))
	}
	if !strings.Contains(c.Endpoints.Schema, "{model}") {
		problems = multierror.Append(problems, errors.New(errors.Configuration, "endpoints.schema must contain {model}"))
	}

	if err := problems.ErrorOrNil(); err != nil {
		return errors.Wrap(errors.Configuration, "invalid configuration", err)
	}
	return nil
}

// Masked returns a copy safe to print.
func (c Config) Masked() Config {
	out := c
	if out.Password != "" {
		out.Password = "********"
	}
	if out.APIKey != "" {
		out.APIKey = mask(out.APIKey)
	}
	out.URL = logging.Mask(out.URL)
	return out
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// Save writes the non-secret settings to path with 0600 permissions.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

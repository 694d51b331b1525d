// Package odoo is the transport client for an Odoo server running the MCP
// session-mirror controller.
//
// A Client owns exactly one authenticated session for the lifetime of the
// process. Calls made while no session exists log in first. When the server
// reports that the session expired, the client logs in again once with the
// original credentials and retries the call once; every other failure is
// returned as is. Concurrent callers that observe the same expired session
// share a single re-authentication.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/logging"
	"odoomcp/cli/internal/normalize"
	"odoomcp/cli/internal/rpc"
)

// DefaultLang is the language injected into every call when none is configured.
const DefaultLang = "en_US"

// Options configures a Client.
type Options struct {
	URL         string
	Database    string
	Credentials auth.Credentials
	// Lang is sent as context.lang on every call.
	Lang      string
	Timeout   time.Duration
	Endpoints Endpoints
	UserAgent string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     *pterm.Logger
}

// Stats counts the requests a Client has issued.
type Stats struct {
	// Calls is the number of RPC requests sent, retries included.
	Calls int64
	// Logins is the number of login attempts, failed ones included.
	Logins int64
}

// Client talks JSON-RPC to one Odoo database as one user.
type Client struct {
	base      string
	database  string
	creds     auth.Credentials
	lang      string
	endpoints Endpoints
	http      *http.Client
	log       *pterm.Logger

	mu         sync.RWMutex
	session    *Session
	generation uint64

	// loginMu serializes logins; mu is never held while waiting on the network.
	loginMu sync.Mutex
	// attempts counts finished logins. loginErr is the failure of the latest
	// one, nil when it succeeded; it is guarded by loginMu.
	attempts atomic.Uint64
	loginErr error

	calls  atomic.Int64
	logins atomic.Int64
}

// New validates opts and returns a client. No network I/O happens here.
// Invalid settings yield a configuration error.
func New(opts Options) (*Client, error) {
	if err := ValidateTarget(opts.URL, opts.Database); err != nil {
		return nil, err
	}
	if err := opts.Credentials.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		base:      strings.TrimRight(opts.URL, "/"),
		database:  opts.Database,
		creds:     opts.Credentials,
		lang:      opts.Lang,
		endpoints: opts.Endpoints.WithDefaults(),
		http:      opts.HTTPClient,
		log:       opts.Logger,
	}
	if c.lang == "" {
		c.lang = DefaultLang
	}
	if c.http == nil {
		c.http = newHTTPClient(opts.Timeout, opts.UserAgent)
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	return c, nil
}

// Endpoints returns the routes the client calls.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Stats returns a snapshot of the request counters.
func (c *Client) Stats() Stats {
	return Stats{Calls: c.calls.Load(), Logins: c.logins.Load()}
}

// Session returns a copy of the current session, if any.
func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) current() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Connect makes sure a session exists, logging in if necessary.
func (c *Client) Connect(ctx context.Context) (Session, error) {
	s, err := c.ensure(ctx)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

// Reconnect discards the current session and logs in again, whether or not
// the current session still works.
func (c *Client) Reconnect(ctx context.Context) (Session, error) {
	s, err := c.refresh(ctx, 0, true)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

func (c *Client) ensure(ctx context.Context) (*Session, error) {
	if s := c.current(); s != nil {
		return s, nil
	}
	return c.refresh(ctx, 0, false)
}

// refresh logs in unless another caller already replaced the session that
// failed. stale is the generation the caller saw fail; zero means the caller
// saw no session at all. Callers that queued behind a failed login get its
// error instead of trying again. force skips both checks.
func (c *Client) refresh(ctx context.Context, stale uint64, force bool) (*Session, error) {
	seen := c.attempts.Load()
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if !force {
		if cur := c.current(); cur != nil && cur.Generation != stale {
			return cur, nil
		}
		if c.attempts.Load() != seen && c.loginErr != nil {
			return nil, detach(c.loginErr)
		}
	}

	s, err := c.login(ctx)
	c.attempts.Add(1)
	if err != nil {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		c.loginErr = nil
		if ctx.Err() == nil {
			c.loginErr = detach(err)
		}
		c.log.Warn("odoo login failed", c.log.Args("url", c.base, "db", c.database, "error", logging.Mask(err.Error())))
		return nil, err
	}
	c.loginErr = nil

	c.mu.Lock()
	c.generation++
	s.Generation = c.generation
	c.session = s
	c.mu.Unlock()

	c.log.Info("odoo session established", c.log.Args(
		"url", c.base, "db", c.database, "uid", s.UserID, "mode", string(s.Mode), "generation", s.Generation))
	return s, nil
}

// detach returns a copy of err's typed error so that each caller can annotate
// its own.
func detach(err error) error {
	if e, ok := errors.As(err); ok {
		cp := *e
		return &cp
	}
	return err
}

// Call issues one JSON-RPC call to endpoint and returns the raw result.
// params become the keyword arguments of the route; context.lang is added.
func (c *Client) Call(ctx context.Context, endpoint string, params map[string]any) (json.RawMessage, error) {
	s, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, s, endpoint, params)
	if !errors.Is(err, errors.SessionExpired) {
		return raw, err
	}

	c.log.Info("odoo session expired, re-authenticating", c.log.Args("endpoint", endpoint, "generation", s.Generation))
	s, err = c.refresh(ctx, s.Generation, false)
	if err != nil {
		markReconnected(err)
		return nil, err
	}

	raw, err = c.do(ctx, s, endpoint, params)
	if errors.Is(err, errors.SessionExpired) {
		e := errors.Wrap(errors.Authentication, "session rejected again right after re-authentication", err).
			WithEndpoint(endpoint)
		e.Reconnected = true
		return nil, e
	}
	markReconnected(err)
	return raw, err
}

func markReconnected(err error) {
	if e, ok := errors.As(err); ok {
		e.Reconnected = true
	}
}

// do sends a single request on session s. It never retries.
func (c *Client) do(ctx context.Context, s *Session, endpoint string, params map[string]any) (json.RawMessage, error) {
	req := rpc.NewRequest(c.withLang(params))
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.Validation, "arguments cannot be encoded as JSON", err).WithEndpoint(endpoint)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	s.authorize(httpReq)

	c.calls.Add(1)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	defer resp.Body.Close()

	c.log.Debug("odoo call", c.log.Args(
		"endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start).String(), "id", req.ID))

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.New(errors.SessionExpired, "server answered 401 Unauthorized").WithEndpoint(endpoint)
	}
	out, err := decode(resp)
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	if out.Error != nil {
		return nil, normalize.Fault(endpoint, out.Error)
	}

	result := out.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	if e := normalize.ResultError(endpoint, result); e != nil {
		return nil, e
	}
	return result, nil
}

// decode reads a JSON-RPC response. Non-2xx statuses and bodies that are not
// JSON-RPC are errors.
func decode(resp *http.Response) (*rpc.Response, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out rpc.Response
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Odoo renders some route errors as JSON-RPC with a non-2xx status.
		if json.Unmarshal(data, &out) == nil && out.Error != nil {
			return &out, nil
		}
		return nil, fmt.Errorf("unexpected status %d %s: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), snippet(data))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("malformed JSON-RPC response: %w: %s", err, snippet(data))
	}
	if out.Error == nil && out.Result == nil && out.JSONRPC == "" {
		return nil, fmt.Errorf("response is not JSON-RPC: %s", snippet(data))
	}
	return &out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// withLang returns a copy of params whose context carries the preferred
// language. A caller-supplied context is kept; its lang is overridden.
func (c *Client) withLang(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	ctx := map[string]any{}
	if existing, ok := params["context"].(map[string]any); ok {
		for k, v := range existing {
			ctx[k] = v
		}
	}
	ctx["lang"] = c.lang
	out["context"] = ctx
	return out
}

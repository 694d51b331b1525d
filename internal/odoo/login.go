package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/normalize"
	"odoomcp/cli/internal/rpc"
)

// login performs a fresh authentication with the configured credentials.
// Rejections are authentication errors; nothing is retried.
func (c *Client) login(ctx context.Context) (*Session, error) {
	c.logins.Add(1)
	if c.creds.Mode() == auth.ModeAPIKey {
		return c.loginAPIKey(ctx)
	}
	return c.loginPassword(ctx)
}

type authenticateResult struct {
	UID      json.RawMessage `json:"uid"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
}

func (c *Client) loginPassword(ctx context.Context) (*Session, error) {
	endpoint := c.endpoints.Authenticate
	req := rpc.NewRequest(map[string]any{
		"db":       c.database,
		"login":    c.creds.Username,
		"password": c.creds.Password,
	})
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.Configuration, "credentials cannot be encoded", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.calls.Add(1)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.Newf(errors.Authentication, "login rejected with status %d", resp.StatusCode).WithEndpoint(endpoint)
	}
	out, err := decode(resp)
	if err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	if out.Error != nil {
		// Wrong database names and bad passwords both surface as faults here.
		return nil, errors.New(errors.Authentication, out.Error.Detail()).
			WithEndpoint(endpoint).
			WithRemote(out.Error.Data.Name)
	}

	var res authenticateResult
	if err := json.Unmarshal(out.Result, &res); err != nil {
		return nil, normalize.Transport(endpoint, err, false)
	}
	var uid int64
	if err := json.Unmarshal(res.UID, &uid); err != nil || uid <= 0 {
		return nil, errors.New(errors.Authentication, "invalid login or password").WithEndpoint(endpoint)
	}

	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie && ck.Value != "" {
			token = ck.Value
		}
	}
	if token == "" {
		return nil, errors.New(errors.Authentication, "server accepted the login but did not issue a session cookie").
			WithEndpoint(endpoint)
	}

	login := res.Username
	if login == "" {
		login = c.creds.Username
	}
	return &Session{
		URL:           c.base,
		Database:      c.database,
		UserID:        uid,
		UserName:      res.Name,
		Login:         login,
		Mode:          auth.ModePassword,
		EstablishedAt: time.Now(),
		token:         token,
	}, nil
}

type capabilitiesUser struct {
	User struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Login string `json:"login"`
	} `json:"user"`
}

// loginAPIKey validates the key by asking the server who it belongs to.
func (c *Client) loginAPIKey(ctx context.Context) (*Session, error) {
	candidate := &Session{
		URL:      c.base,
		Database: c.database,
		Mode:     auth.ModeAPIKey,
		token:    c.creds.APIKey,
	}

	raw, err := c.do(ctx, candidate, c.endpoints.Capabilities, nil)
	if err != nil {
		switch errors.KindOf(err) {
		case errors.SessionExpired, errors.Authentication, errors.Permission:
			return nil, errors.Wrap(errors.Authentication, "API key rejected", err).WithEndpoint(c.endpoints.Capabilities)
		default:
			return nil, err
		}
	}

	var caps capabilitiesUser
	if err := json.Unmarshal(raw, &caps); err != nil || caps.User.ID <= 0 {
		return nil, errors.New(errors.Authentication, "API key did not resolve to a user").
			WithEndpoint(c.endpoints.Capabilities)
	}

	candidate.UserID = caps.User.ID
	candidate.UserName = caps.User.Name
	candidate.Login = caps.User.Login
	candidate.EstablishedAt = time.Now()
	return candidate, nil
}

package odoo

import (
	"net/http"
	"net/url"
	"time"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/errors"
)

// SessionCookie is the cookie Odoo uses to identify a web session.
const SessionCookie = "session_id"

// Session is one authenticated connection. It is replaced as a whole, never
// mutated, so a copy handed out stays consistent.
type Session struct {
	URL      string
	Database string
	UserID   int64
	UserName string
	Login    string
	Mode     auth.Mode
	// Generation increases by one with every successful login.
	Generation    uint64
	EstablishedAt time.Time

	token string
}

// authorize attaches the session credentials to req.
func (s *Session) authorize(req *http.Request) {
	switch s.Mode {
	case auth.ModeAPIKey:
		req.Header.Set("Authorization", "Bearer "+s.token)
	default:
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: s.token})
	}
}

// ValidateTarget checks the server URL and database name.
func ValidateTarget(rawURL, database string) error {
	if rawURL == "" {
		return errors.New(errors.Configuration, "ODOO_URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(errors.Configuration, "ODOO_URL is not a valid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf(errors.Configuration, "ODOO_URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New(errors.Configuration, "ODOO_URL has no host")
	}
	if database == "" {
		return errors.New(errors.Configuration, "ODOO_DB is required")
	}
	return nil
}

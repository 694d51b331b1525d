// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth models the two ways of authenticating against Odoo and keeps
// track of the last successful login. Secrets are stored in the OS keychain
// via internal/keychain; nothing here ever writes a secret to disk.
package auth

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"odoomcp/cli/internal/errors"
)

// Mode is the authentication form in use.
type Mode string

const (
	ModeNone     Mode = ""
	ModePassword Mode = "password"
	ModeAPIKey   Mode = "api_key"
)

// Credentials holds either a username and password or an API key.
type Credentials struct {
	Username string
	Password string
	APIKey   string
}

// Mode reports which credential form is present. It does not validate.
func (c Credentials) Mode() Mode {
	switch {
	case c.APIKey != "":
		return ModeAPIKey
	case c.Username != "" || c.Password != "":
		return ModePassword
	default:
		return ModeNone
	}
}

// Secret returns the password or API key, whichever is in use.
func (c Credentials) Secret() string {
	if c.Mode() == ModeAPIKey {
		return c.APIKey
	}
	return c.Password
}

// Validate checks that exactly one credential form is fully present.
func (c Credentials) Validate() error {
	var result *multierror.Error

	hasPassword := c.Username != "" || c.Password != ""
	hasKey := strings.TrimSpace(c.APIKey) != ""

	switch {
	case hasPassword && hasKey:
		result = multierror.Append(result, errors.New(errors.Configuration,
			"both username/password and API key are set, configure exactly one"))
	case !hasPassword && !hasKey:
		result = multierror.Append(result, errors.New(errors.Configuration,
			"no credentials: set ODOO_USERNAME and ODOO_PASSWORD, or ODOO_API_KEY"))
	case hasPassword && c.Username == "":
		result = multierror.Append(result, errors.New(errors.Configuration,
			"a password is set without ODOO_USERNAME"))
	case hasPassword && c.Password == "":
		result = multierror.Append(result, errors.New(errors.Configuration,
			"ODOO_USERNAME is set without ODOO_PASSWORD"))
	}

	return result.ErrorOrNil()
}

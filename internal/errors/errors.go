// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for agent-facing reporting.
// Every failure that crosses the tool boundary is one of a closed set of kinds so
// that a calling agent can reason about it: configuration, authentication,
// validation, permission, not-found and transport errors. SessionExpired is an
// internal signal used by the transport client and is never surfaced when the
// automatic re-authentication succeeds.
//
// Business-level errors carry the remote server's human-readable message
// verbatim in Message, with the remote diagnostic (exception name, debug text)
// kept apart in Remote. Transport-level errors additionally record the endpoint
// that was attempted and whether a reconnect was tried.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Configuration indicates missing or contradictory startup settings.
	Configuration Kind = "configuration_error"
	// Authentication indicates the remote server rejected the credentials.
	Authentication Kind = "authentication_error"
	// SessionExpired signals that the remote session is no longer valid.
	SessionExpired Kind = "session_expired"
	// Validation indicates malformed tool arguments or a business-rule rejection.
	Validation Kind = "validation_error"
	// Permission indicates the user lacks rights on the model, record or method.
	Permission Kind = "permission_error"
	// NotFound indicates the target does not exist or is not visible to the user.
	NotFound Kind = "not_found"
	// Transport indicates a network failure, timeout or malformed response.
	Transport Kind = "transport_error"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error

	// Remote is the diagnostic reported by the server (exception name, debug text).
	Remote string
	// Endpoint is the remote path that was being called, when known.
	Endpoint string
	// Reconnected reports whether a re-authentication was attempted for this call.
	Reconnected bool
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithEndpoint records the endpoint on e and returns it.
func (e *E) WithEndpoint(endpoint string) *E {
	e.Endpoint = endpoint
	return e
}

// WithRemote records the remote diagnostic on e and returns it.
func (e *E) WithRemote(remote string) *E {
	e.Remote = remote
	return e
}

// As returns the first *E in err's chain.
func As(err error) (*E, bool) {
	var e *E
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *E in err's chain. Untyped errors are
// reported as Transport since they originate below the normalization boundary.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Transport
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

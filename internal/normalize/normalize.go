// Package normalize converts the heterogeneous outcomes of an Odoo call into
// the closed error taxonomy of package errors and renders them as a tagged
// envelope for the tool caller.
//
// Odoo reports failures in three shapes:
//
//   - a JSON-RPC error object, raised by the framework for exceptions that
//     escape a route (access rights, validation, missing records, stale session);
//   - a successful JSON-RPC result whose body is {"error": ..., "details": ...},
//     produced by the MCP controller catching an exception itself;
//   - a transport failure: no response, a non-2xx status or a body that is not
//     JSON-RPC at all.
//
// Business messages are passed through verbatim. Transport failures are
// wrapped with the endpoint and whether a reconnect was attempted.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/rpc"
)

// Fault maps a JSON-RPC error object to a typed error.
func Fault(endpoint string, f *rpc.Error) *errors.E {
	if f.SessionExpired() {
		return errors.New(errors.SessionExpired, f.Detail()).
			WithEndpoint(endpoint).
			WithRemote(f.Data.Name)
	}
	return errors.New(kindForException(f.ExceptionName()), f.Detail()).
		WithEndpoint(endpoint).
		WithRemote(f.Data.Name)
}

func kindForException(name string) errors.Kind {
	switch name {
	case "AccessDenied":
		return errors.Authentication
	case "AccessError":
		return errors.Permission
	case "MissingError", "KeyError", "AttributeError", "NotFound":
		return errors.NotFound
	default:
		// ValidationError, UserError, ValueError, TypeError, IntegrityError and
		// anything unrecognised are rejections of the request itself.
		return errors.Validation
	}
}

// controllerError is the body the MCP controller returns when it catches an
// exception itself.
type controllerError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// bareKey matches str(KeyError('x.model')), which is what the controller
// returns when a model name is unknown.
var bareKey = regexp.MustCompile(`^'[\w.]+'$`)

// ResultError inspects a successful result for an embedded controller error.
// It returns nil when the result carries no error.
func ResultError(endpoint string, result json.RawMessage) *errors.E {
	trimmed := strings.TrimSpace(string(result))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var body controllerError
	if err := json.Unmarshal(result, &body); err != nil || body.Error == "" {
		return nil
	}
	return errors.New(kindForMessage(body.Error), body.Error).
		WithEndpoint(endpoint).
		WithRemote(body.Details)
}

func kindForMessage(msg string) errors.Kind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "model not found"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "has been deleted"),
		strings.Contains(lower, "has no attribute"),
		bareKey.MatchString(msg):
		return errors.NotFound
	case isAccessMessage(lower):
		return errors.Permission
	default:
		return errors.Validation
	}
}

// accessPhrases are the wordings Odoo uses when it refuses an operation on
// access rights or record rules.
var accessPhrases = []string{
	"access denied",
	"access error",
	"access rights",
	"not allowed to access",
	"you are not allowed",
	"security restrictions",
}

func isAccessMessage(lower string) bool {
	for _, p := range accessPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Transport wraps a failure below the JSON-RPC layer.
func Transport(endpoint string, err error, reconnected bool) *errors.E {
	e := errors.Wrap(errors.Transport, "request to "+endpoint+" failed", err).WithEndpoint(endpoint)
	e.Reconnected = reconnected
	return e
}

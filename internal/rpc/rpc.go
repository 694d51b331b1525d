// Package rpc holds the JSON-RPC 2.0 envelope spoken by Odoo's type='json'
// HTTP routes.
package rpc

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Version is the JSON-RPC protocol version string.
const Version = "2.0"

// CodeSessionExpired is the error code Odoo uses when the session cookie no
// longer maps to a valid session.
const CodeSessionExpired = 100

// Request is a JSON-RPC request. Odoo always uses the method name "call"
// and receives its keyword arguments in Params.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      string         `json:"id"`
}

// NewRequest builds a "call" request with a fresh id.
func NewRequest(params map[string]any) *Request {
	if params == nil {
		params = map[string]any{}
	}
	return &Request{
		JSONRPC: Version,
		Method:  "call",
		Params:  params,
		ID:      uuid.NewString(),
	}
}

// Response is a JSON-RPC response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error object Odoo serializes for an exception raised while
// serving a JSON route.
type Error struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// ErrorData carries the server-side exception details.
type ErrorData struct {
	Name          string `json:"name"`
	Debug         string `json:"debug,omitempty"`
	Message       string `json:"message"`
	Arguments     []any  `json:"arguments,omitempty"`
	ExceptionType string `json:"exception_type,omitempty"`
}

func (e *Error) Error() string {
	if msg := e.Detail(); msg != "" {
		return msg
	}
	return "odoo rpc error"
}

// Detail returns the most specific human-readable message available.
func (e *Error) Detail() string {
	if e.Data.Message != "" {
		return e.Data.Message
	}
	return e.Message
}

// ExceptionName returns the short exception class name, e.g. "AccessError"
// for "odoo.exceptions.AccessError".
func (e *Error) ExceptionName() string {
	name := e.Data.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// SessionExpired reports whether e is Odoo's stale-session signal.
func (e *Error) SessionExpired() bool {
	if e == nil {
		return false
	}
	return e.Code == CodeSessionExpired || e.ExceptionName() == "SessionExpiredException"
}
